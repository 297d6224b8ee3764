package models

// ModelParams are the LLM provider knobs accepted by the gateway (spec
// §4.1). Pointer fields distinguish "unset, use provider default" from an
// explicit zero value.
type ModelParams struct {
	ModelName      string         `json:"model_name,omitempty" yaml:"model_name,omitempty"`
	Temperature    *float64       `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP           *float64       `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	TopK           *int           `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	MaxTokens      *int           `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	SafetySettings map[string]any `json:"safety_settings,omitempty" yaml:"safety_settings,omitempty"`
}

// CostRate is the per-1k-token price for a given model.
type CostRate struct {
	InputPer1k  float64 `json:"input_per_1k" yaml:"input_per_1k"`
	OutputPer1k float64 `json:"output_per_1k" yaml:"output_per_1k"`
}

// Settings is the recognized, per-evaluation settings map (spec §6). All
// fields are optional; zero values are replaced by Resolved()'s defaults.
// Settings merge by key, override wins (spec §4.8 step 2).
type Settings struct {
	CleaningLevel           CleaningLevel       `json:"cleaning_level,omitempty" yaml:"cleaning_level,omitempty"`
	SlidingWindowCleaner    *int                `json:"sliding_window_cleaner,omitempty" yaml:"sliding_window_cleaner,omitempty"`
	SlidingWindowDecider    *int                `json:"sliding_window_decider,omitempty" yaml:"sliding_window_decider,omitempty"`
	SlidingWindowFunctions  *int                `json:"sliding_window_functions,omitempty" yaml:"sliding_window_functions,omitempty"`
	AssistantSpeakers       []string            `json:"assistant_speakers,omitempty" yaml:"assistant_speakers,omitempty"`
	CleanerTimeoutMs        *int                `json:"cleaner_timeout_ms,omitempty" yaml:"cleaner_timeout_ms,omitempty"`
	DeciderTimeoutMs        *int                `json:"decider_timeout_ms,omitempty" yaml:"decider_timeout_ms,omitempty"`
	FunctionExecTimeoutMs   *int                `json:"function_exec_timeout_ms,omitempty" yaml:"function_exec_timeout_ms,omitempty"`
	EnableFunctionCalling   *bool               `json:"enable_function_calling,omitempty" yaml:"enable_function_calling,omitempty"`
	StrictCleaner           bool                `json:"strict_cleaner,omitempty" yaml:"strict_cleaner,omitempty"`
	StrictPipeline          bool                `json:"strict_pipeline,omitempty" yaml:"strict_pipeline,omitempty"`
	CleanerModelParams      *ModelParams        `json:"cleaner_model_params,omitempty" yaml:"cleaner_model_params,omitempty"`
	DeciderModelParams      *ModelParams        `json:"decider_model_params,omitempty" yaml:"decider_model_params,omitempty"`
	CostRates               map[string]CostRate `json:"cost_rates,omitempty" yaml:"cost_rates,omitempty"`
	MaskingEnabled          *bool               `json:"masking_enabled,omitempty" yaml:"masking_enabled,omitempty"`
	NotifyOnComplete        bool                `json:"notify_on_complete,omitempty" yaml:"notify_on_complete,omitempty"`
}

// Resolved is the settings map with every default applied, used by the
// components that read them so none of them need to know a zero value
// means "use the default".
type Resolved struct {
	CleaningLevel          CleaningLevel
	SlidingWindowCleaner   int
	SlidingWindowDecider   int
	SlidingWindowFunctions int
	AssistantSpeakers      map[string]bool
	CleanerTimeoutMs       int
	DeciderTimeoutMs       int
	FunctionExecTimeoutMs  int
	EnableFunctionCalling  bool
	StrictCleaner          bool
	StrictPipeline         bool
	CleanerModelParams     ModelParams
	DeciderModelParams     ModelParams
	CostRates              map[string]CostRate
	MaskingEnabled         bool
	NotifyOnComplete       bool
}

var defaultAssistantSpeakers = []string{"Lumen", "AI", "Assistant"}

// Resolve fills in every documented default (spec §6 table) for fields the
// caller left unset.
func (s Settings) Resolve() Resolved {
	r := Resolved{
		CleaningLevel:          s.CleaningLevel,
		SlidingWindowCleaner:   10,
		SlidingWindowDecider:   20,
		SlidingWindowFunctions: 10,
		CleanerTimeoutMs:       3000,
		DeciderTimeoutMs:       3000,
		FunctionExecTimeoutMs:  500,
		EnableFunctionCalling:  true,
		StrictCleaner:          s.StrictCleaner,
		StrictPipeline:         s.StrictPipeline,
		CostRates:              s.CostRates,
		MaskingEnabled:         true,
		NotifyOnComplete:       s.NotifyOnComplete,
	}
	if r.CleaningLevel == "" {
		r.CleaningLevel = CleaningFull
	}
	if s.SlidingWindowCleaner != nil {
		r.SlidingWindowCleaner = *s.SlidingWindowCleaner
	}
	if s.SlidingWindowDecider != nil {
		r.SlidingWindowDecider = *s.SlidingWindowDecider
	}
	if s.SlidingWindowFunctions != nil {
		r.SlidingWindowFunctions = *s.SlidingWindowFunctions
	}
	if s.CleanerTimeoutMs != nil {
		r.CleanerTimeoutMs = *s.CleanerTimeoutMs
	}
	if s.DeciderTimeoutMs != nil {
		r.DeciderTimeoutMs = *s.DeciderTimeoutMs
	}
	if s.FunctionExecTimeoutMs != nil {
		r.FunctionExecTimeoutMs = *s.FunctionExecTimeoutMs
	}
	if s.EnableFunctionCalling != nil {
		r.EnableFunctionCalling = *s.EnableFunctionCalling
	}
	if s.CleanerModelParams != nil {
		r.CleanerModelParams = *s.CleanerModelParams
	}
	if s.DeciderModelParams != nil {
		r.DeciderModelParams = *s.DeciderModelParams
	}
	if s.MaskingEnabled != nil {
		r.MaskingEnabled = *s.MaskingEnabled
	}

	speakers := s.AssistantSpeakers
	if len(speakers) == 0 {
		speakers = defaultAssistantSpeakers
	}
	r.AssistantSpeakers = make(map[string]bool, len(speakers))
	for _, sp := range speakers {
		r.AssistantSpeakers[normalizeSpeaker(sp)] = true
	}
	return r
}

func normalizeSpeaker(s string) string {
	isSpace := func(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
	for len(s) > 0 && isSpace(s[0]) {
		s = s[1:]
	}
	for len(s) > 0 && isSpace(s[len(s)-1]) {
		s = s[:len(s)-1]
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// IsAssistantLike reports whether speaker matches the configured bypass
// set, case-insensitive and trimmed (spec §4.4).
func (r Resolved) IsAssistantLike(speaker string) bool {
	return r.AssistantSpeakers[normalizeSpeaker(speaker)]
}

// Merge overlays override's non-zero fields onto s, override wins on key
// collision (spec §4.8 step 2), grounded on the teacher's config merge
// idiom of building a fresh map and letting the later pass win.
func (s Settings) Merge(override Settings) Settings {
	out := s
	if override.CleaningLevel != "" {
		out.CleaningLevel = override.CleaningLevel
	}
	if override.SlidingWindowCleaner != nil {
		out.SlidingWindowCleaner = override.SlidingWindowCleaner
	}
	if override.SlidingWindowDecider != nil {
		out.SlidingWindowDecider = override.SlidingWindowDecider
	}
	if override.SlidingWindowFunctions != nil {
		out.SlidingWindowFunctions = override.SlidingWindowFunctions
	}
	if len(override.AssistantSpeakers) > 0 {
		out.AssistantSpeakers = override.AssistantSpeakers
	}
	if override.CleanerTimeoutMs != nil {
		out.CleanerTimeoutMs = override.CleanerTimeoutMs
	}
	if override.DeciderTimeoutMs != nil {
		out.DeciderTimeoutMs = override.DeciderTimeoutMs
	}
	if override.FunctionExecTimeoutMs != nil {
		out.FunctionExecTimeoutMs = override.FunctionExecTimeoutMs
	}
	if override.EnableFunctionCalling != nil {
		out.EnableFunctionCalling = override.EnableFunctionCalling
	}
	if override.StrictCleaner {
		out.StrictCleaner = true
	}
	if override.StrictPipeline {
		out.StrictPipeline = true
	}
	if override.CleanerModelParams != nil {
		out.CleanerModelParams = override.CleanerModelParams
	}
	if override.DeciderModelParams != nil {
		out.DeciderModelParams = override.DeciderModelParams
	}
	if len(override.CostRates) > 0 {
		out.CostRates = override.CostRates
	}
	if override.MaskingEnabled != nil {
		out.MaskingEnabled = override.MaskingEnabled
	}
	if override.NotifyOnComplete {
		out.NotifyOnComplete = true
	}
	return out
}
