// Package evalcontext implements the Context Builder (C3): pure,
// in-memory construction of the cleaner and decider sliding-window
// contexts from an evaluation's cleaned-turn log and function-call log.
// Named evalcontext rather than context to avoid colliding with the
// standard library package that most of this module's packages import.
package evalcontext

// CleanedTurnRef is the minimal view of a CleanedTurn the builder needs:
// just enough to build a window entry, independent of how the caller
// stores the full row.
type CleanedTurnRef struct {
	Speaker      string
	CleanedText  string
	TurnSequence int
}

// FunctionCallRef is the minimal view of a CalledFunction the builder
// needs for the decider's function-call window.
type FunctionCallRef struct {
	Function   string
	Parameters map[string]any
	Result     string
	Success    bool
}

// CatalogEntry describes one function available to the decider, echoed
// verbatim into the decider context so the prompt can enumerate it.
type CatalogEntry struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ContextItem is one entry of the cleaner's sliding window.
type ContextItem struct {
	Speaker     string `json:"speaker"`
	CleanedText string `json:"cleaned_text"`
}

// FunctionItem is one entry of the decider's function-call window.
type FunctionItem struct {
	Function   string         `json:"function"`
	Parameters map[string]any `json:"parameters"`
	Result     string         `json:"result"`
	Success    bool           `json:"success"`
}

// CallContext is the decider's description of the turn under evaluation.
type CallContext struct {
	UserRequest  string `json:"user_request"`
	Speaker      string `json:"speaker"`
	TurnSequence int    `json:"turn_sequence"`
}

// DeciderContext is the full bundle of variables the decider's function
// prompt is rendered with.
type DeciderContext struct {
	CleanedContext   []ContextItem  `json:"cleaned_context"`
	FunctionContext  []FunctionItem `json:"function_context"`
	CallContext      CallContext    `json:"call_context"`
	FunctionCatalog  []CatalogEntry `json:"function_catalog"`
	MirroredCustomer map[string]any `json:"mirrored_customer"`
}

// Builder is stateless: every method is a pure function of its
// arguments, matching spec §5's "context build... non-blocking, in-memory
// only" requirement.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

// CleanerContext returns the last windowSize items of log, oldest first,
// excluding the current turn (spec §4.3). A windowSize of 0 returns an
// empty (non-nil) slice so the template still renders an empty list
// rather than a missing variable.
func (b *Builder) CleanerContext(log []CleanedTurnRef, windowSize int) []ContextItem {
	window := lastN(log, windowSize)
	out := make([]ContextItem, len(window))
	for i, ct := range window {
		out[i] = ContextItem{Speaker: ct.Speaker, CleanedText: ct.CleanedText}
	}
	return out
}

// DeciderContextInput bundles everything BuildDeciderContext needs beyond
// window sizes, kept as a struct so the method signature doesn't balloon
// as the decider context grows additional fields.
type DeciderContextInput struct {
	CleanedLog        []CleanedTurnRef // including the just-produced cleaned turn
	FunctionLog       []FunctionCallRef
	CurrentCleanedText string
	Speaker           string
	TurnSequence      int
	Catalog           []CatalogEntry
	MirroredCustomer  map[string]any
	WindowDecider     int
	WindowFunctions   int
}

// DeciderContext builds the decider's full context bundle (spec §4.3).
func (b *Builder) DeciderContext(in DeciderContextInput) DeciderContext {
	clWindow := lastN(in.CleanedLog, in.WindowDecider)
	cleaned := make([]ContextItem, len(clWindow))
	for i, ct := range clWindow {
		cleaned[i] = ContextItem{Speaker: ct.Speaker, CleanedText: ct.CleanedText}
	}

	fnWindow := lastNFunc(in.FunctionLog, in.WindowFunctions)
	funcs := make([]FunctionItem, len(fnWindow))
	for i, fc := range fnWindow {
		funcs[i] = FunctionItem{Function: fc.Function, Parameters: fc.Parameters, Result: fc.Result, Success: fc.Success}
	}

	customer := in.MirroredCustomer
	if customer == nil {
		customer = map[string]any{}
	}

	return DeciderContext{
		CleanedContext:  cleaned,
		FunctionContext: funcs,
		CallContext: CallContext{
			UserRequest:  in.CurrentCleanedText,
			Speaker:      in.Speaker,
			TurnSequence: in.TurnSequence,
		},
		FunctionCatalog:  in.Catalog,
		MirroredCustomer: customer,
	}
}

func lastN(log []CleanedTurnRef, n int) []CleanedTurnRef {
	if n <= 0 || len(log) == 0 {
		return []CleanedTurnRef{}
	}
	if len(log) <= n {
		return append([]CleanedTurnRef{}, log...)
	}
	return append([]CleanedTurnRef{}, log[len(log)-n:]...)
}

func lastNFunc(log []FunctionCallRef, n int) []FunctionCallRef {
	if n <= 0 || len(log) == 0 {
		return []FunctionCallRef{}
	}
	if len(log) <= n {
		return append([]FunctionCallRef{}, log...)
	}
	return append([]FunctionCallRef{}, log[len(log)-n:]...)
}
