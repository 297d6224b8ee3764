package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scotty-git/sidelinescott-sub003/pkg/cleaner"
	"github.com/scotty-git/sidelinescott-sub003/pkg/customer"
	"github.com/scotty-git/sidelinescott-sub003/pkg/database"
	"github.com/scotty-git/sidelinescott-sub003/pkg/decision"
	"github.com/scotty-git/sidelinescott-sub003/pkg/engineerr"
	"github.com/scotty-git/sidelinescott-sub003/pkg/evalcontext"
	"github.com/scotty-git/sidelinescott-sub003/pkg/events"
	"github.com/scotty-git/sidelinescott-sub003/pkg/functions"
	"github.com/scotty-git/sidelinescott-sub003/pkg/llm"
	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
	"github.com/scotty-git/sidelinescott-sub003/pkg/queue"
	"github.com/scotty-git/sidelinescott-sub003/pkg/telemetry"
	"github.com/scotty-git/sidelinescott-sub003/pkg/template"

	"go.opentelemetry.io/otel/attribute"
)

// FunctionOutcome pairs one decided function call with its execution
// result, returned as part of a TurnResult (spec §4.8 step 8).
type FunctionOutcome struct {
	Name       string
	Parameters map[string]any
	Result     functions.Result
}

// TurnResult is the composite payload process_turn always returns,
// success or degraded (spec §4.8 step 8, §7 "process_turn always
// returns a structured result").
type TurnResult struct {
	CleanedTurn     models.CleanedTurn
	Decision        *decision.Decision
	FunctionResults []FunctionOutcome
	TotalCost       models.Cost
	IdempotencyHit  bool
}

// Manager is the Evaluation Manager (C8): it owns EvaluationState
// lifecycles and orchestrates process_turn end to end, grounded on the
// teacher's SingleShotController/orchestrator split (pkg/agent) — one
// component driving sequential stage calls under a single coarse lock.
type Manager struct {
	db         *database.Client
	cache      *StateCache
	redisCache *RedisStateCache
	renderer   *template.Renderer
	gateway    *llm.Gateway
	cleaner    *cleaner.Stage
	catalog    *functions.Catalog
	executor   *functions.Executor
	masker     *customer.Masker
	bg         *queue.Executor
	publisher  *events.Publisher
	logger     *slog.Logger
}

// NewManager wires together every collaborator process_turn needs.
// redisCache may be nil (built from a nil redis.UniversalClient via
// NewRedisStateCache), which disables the Redis layer entirely and
// falls back to the in-memory cache plus Postgres rebuild.
func NewManager(
	db *database.Client,
	cache *StateCache,
	redisCache *RedisStateCache,
	renderer *template.Renderer,
	gateway *llm.Gateway,
	cleanerStage *cleaner.Stage,
	catalog *functions.Catalog,
	executor *functions.Executor,
	masker *customer.Masker,
	bg *queue.Executor,
	publisher *events.Publisher,
) *Manager {
	return &Manager{
		db:         db,
		cache:      cache,
		redisCache: redisCache,
		renderer:   renderer,
		gateway:    gateway,
		cleaner:    cleanerStage,
		catalog:    catalog,
		executor:   executor,
		masker:     masker,
		bg:         bg,
		publisher:  publisher,
		logger:     slog.Default().With("component", "evaluation-manager"),
	}
}

// CreateEvaluation implements the create_evaluation inbound operation
// (spec §6): pins the two prompt templates and the settings overlay to
// a fresh Evaluation row.
func (m *Manager) CreateEvaluation(ctx context.Context, conversationID, promptTemplateID, functionPromptTemplateID string, settings models.Settings, userID string, seedCustomer map[string]any) (models.Evaluation, error) {
	eval := models.Evaluation{
		ID:                       uuid.NewString(),
		ConversationID:           conversationID,
		PromptTemplateID:         promptTemplateID,
		FunctionPromptTemplateID: functionPromptTemplateID,
		Settings:                 settings,
		UserID:                   userID,
		Status:                   models.EvaluationActive,
		SeedCustomer:             seedCustomer,
		CreatedAt:                time.Now().UTC(),
	}
	if err := m.db.CreateEvaluation(ctx, eval); err != nil {
		return models.Evaluation{}, engineerr.Wrap(engineerr.KindPersistence, "failed to create evaluation", err)
	}
	return eval, nil
}

// ensureState returns the cached EvaluationState for evaluationID,
// rebuilding it from persistence on a cache miss (spec §4.8 step 1). The
// miss path (Redis fetch or Postgres rebuild, then insert) runs through
// StateCache.GetOrBuild so concurrent misses for the same evaluationID
// share one build instead of each racing to construct and insert their
// own EvaluationState.
func (m *Manager) ensureState(ctx context.Context, evaluationID string) (*EvaluationState, error) {
	if s, ok := m.cache.Get(evaluationID); ok {
		return s, nil
	}
	return m.cache.GetOrBuild(ctx, evaluationID, func(ctx context.Context) (*EvaluationState, error) {
		if s, ok := m.redisCache.Get(ctx, evaluationID); ok {
			return s, nil
		}
		s, err := RebuildState(ctx, m.db, evaluationID)
		if err != nil {
			return nil, err
		}
		m.redisCache.Put(ctx, evaluationID, s)
		return s, nil
	})
}

// ProcessTurn implements process_turn (spec §4.8) in full: idempotency
// fast path, settings merge, cleaner, decider eligibility, decider,
// cost accumulation, outbound emission, and the composite result.
func (m *Manager) ProcessTurn(ctx context.Context, evaluationID, turnID string, override models.Settings) (TurnResult, error) {
	ctx, span := telemetry.Tracer("evaluation-manager").Start(ctx, "process_turn")
	span.SetAttributes(
		attribute.String("evaluation_id", evaluationID),
		attribute.String("turn_id", turnID),
	)
	defer span.End()

	state, err := m.ensureState(ctx, evaluationID)
	if err != nil {
		return TurnResult{}, err
	}

	state.Lock()
	defer state.Unlock()
	defer func() { m.redisCache.Put(ctx, evaluationID, state) }()

	// Step 1: idempotency fast path — zero new LLM calls (I2).
	if existing, ok := state.CleanedTurnFor(turnID); ok {
		return TurnResult{CleanedTurn: existing, IdempotencyHit: true}, nil
	}

	turn, err := m.db.TurnByID(ctx, turnID)
	if err != nil {
		return TurnResult{}, engineerr.Wrap(engineerr.KindPersistence, "failed to load turn", err)
	}

	// Step 2: settings merge, override wins.
	resolved := state.Evaluation.Settings.Merge(override).Resolve()

	timing := models.TimingBreakdown{}
	start := time.Now()

	// Step 3: Cleaner.
	timing.CleanerStart = time.Since(start).Milliseconds()
	cleanerOut, cleanErr := m.cleaner.Clean(ctx, cleaner.Input{
		RawText:        turn.RawText,
		Speaker:        string(turn.Speaker),
		CleanedContext: toCleanerVars(evalcontext.NewBuilder().CleanerContext(state.CleanedLog(), resolved.SlidingWindowCleaner)),
		CleaningLevel:  resolved.CleaningLevel,
		TemplateText:   state.CleanerTemplate.TemplateText,
		ModelParams:    resolved.CleanerModelParams,
		Timeout:        time.Duration(resolved.CleanerTimeoutMs) * time.Millisecond,
		AssistantLike:  resolved.IsAssistantLike(string(turn.Speaker)),
	})
	timing.CleanerEnd = time.Since(start).Milliseconds()
	if cleanErr != nil && resolved.StrictCleaner {
		return TurnResult{}, engineerr.WithTiming(
			engineerr.Wrap(engineerr.KindLLMTransport, "cleaner call failed under strict_cleaner", cleanErr),
			timing)
	}

	cleanedTurn := models.CleanedTurn{
		ID:                uuid.NewString(),
		EvaluationID:       evaluationID,
		TurnID:             turnID,
		TurnSequence:       turn.TurnSequence,
		Speaker:            turn.Speaker,
		CleanedText:        cleanerOut.CleanedText,
		ConfidenceScore:    cleanerOut.Confidence,
		CleaningApplied:    cleanerOut.CleaningApplied,
		CleaningLevel:      cleanerOut.CleaningLevel,
		ProcessingTimeMs:   cleanerOut.ProcessingTimeMs,
		Corrections:        cleanerOut.Corrections,
		ContextDetected:    cleanerOut.ContextDetected,
		AIModelUsed:        cleanerOut.AIModelUsed,
		TimingBreakdown:    timing,
		GeminiPrompt:       cleanerOut.GeminiPrompt,
		GeminiResponse:     cleanerOut.GeminiResponse,
		TemplateVariables:  cleanerOut.TemplateVars,
		CreatedAt:          time.Now().UTC(),
	}

	dbSaveStart := time.Now()
	if err := m.db.CreateCleanedTurn(ctx, cleanedTurn); err != nil {
		// Fatal to this turn (spec §4.8 failure semantics): no broadcast,
		// no cost row.
		return TurnResult{}, engineerr.WithTiming(
			engineerr.Wrap(engineerr.KindPersistence, "failed to persist cleaned turn", err),
			timing)
	}
	timing.DatabaseSaveMs = time.Since(dbSaveStart).Milliseconds()
	state.AppendCleanedTurn(cleanedTurn)

	newTurnsProcessed := state.Evaluation.TurnsProcessed + 1
	if err := m.db.UpdateEvaluationProgress(ctx, evaluationID, models.EvaluationActive, newTurnsProcessed); err != nil {
		m.logger.Error("failed to update turns_processed", "evaluation_id", evaluationID, "error", err)
	} else {
		state.Evaluation.TurnsProcessed = newTurnsProcessed
	}

	// Step 4: decider eligibility.
	var dec *decision.Decision
	var outcomes []FunctionOutcome
	deciderEligible := resolved.EnableFunctionCalling && !resolved.IsAssistantLike(string(turn.Speaker))

	var deciderInputTokens, deciderOutputTokens int

	if deciderEligible {
		timing.FunctionContextStart = time.Since(start).Milliseconds()

		state.Customer.SeedIfAbsent(state.Evaluation.SeedCustomer)
		mirrored := state.Customer.Snapshot()
		if resolved.MaskingEnabled {
			mirrored = m.masker.Mask(mirrored)
		}

		catalogEntries := catalogToContext(m.catalog)
		deciderCtx := evalcontext.NewBuilder().DeciderContext(evalcontext.DeciderContextInput{
			CleanedLog:         state.CleanedLog(),
			FunctionLog:        state.FunctionLog(),
			CurrentCleanedText: cleanedTurn.CleanedText,
			Speaker:            string(turn.Speaker),
			TurnSequence:       turn.TurnSequence,
			Catalog:            catalogEntries,
			MirroredCustomer:   mirrored,
			WindowDecider:      resolved.SlidingWindowDecider,
			WindowFunctions:    resolved.SlidingWindowFunctions,
		})
		timing.FunctionContextEnd = time.Since(start).Milliseconds()

		timing.FunctionPromptStart = time.Since(start).Milliseconds()
		rendered, renderErr := m.renderer.Render(state.DeciderTemplate.TemplateText, map[string]any{
			"cleaned_context":   deciderCtx.CleanedContext,
			"function_context":  deciderCtx.FunctionContext,
			"call_context":      deciderCtx.CallContext,
			"function_catalog":  deciderCtx.FunctionCatalog,
			"mirrored_customer": deciderCtx.MirroredCustomer,
		})
		timing.FunctionPromptEnd = time.Since(start).Milliseconds()

		if renderErr != nil {
			if resolved.StrictPipeline {
				return TurnResult{}, engineerr.WithTiming(asEngineErr(renderErr, engineerr.KindTemplateRender), timing)
			}
			m.logger.Warn("decider prompt render failed, skipping decider", "evaluation_id", evaluationID, "turn_id", turnID, "error", renderErr)
			dec = &decision.Decision{FunctionCalls: []decision.FunctionCall{}, ParseError: "template_render_error"}
		} else {
			timing.FunctionGeminiStart = time.Since(start).Milliseconds()
			resp, callErr := m.gateway.Call(ctx, rendered.Rendered, resolved.DeciderModelParams, time.Duration(resolved.DeciderTimeoutMs)*time.Millisecond)
			timing.FunctionGeminiEnd = time.Since(start).Milliseconds()

			if callErr != nil {
				if resolved.StrictPipeline {
					return TurnResult{}, engineerr.WithTiming(asEngineErr(callErr, engineerr.KindLLMTransport), timing)
				}
				m.logger.Warn("decider call failed, yielding empty function_calls", "evaluation_id", evaluationID, "turn_id", turnID, "error", callErr)
				dec = &decision.Decision{FunctionCalls: []decision.FunctionCall{}, ParseError: "llm_call_failed"}
			} else {
				deciderInputTokens = resp.InputTokens
				deciderOutputTokens = resp.OutputTokens

				timing.FunctionParseStart = time.Since(start).Milliseconds()
				parsed := decision.Parse(resp.Text)
				timing.FunctionParseEnd = time.Since(start).Milliseconds()
				dec = &parsed

				timing.FunctionExecuteStart = time.Since(start).Milliseconds()
				for _, call := range dec.FunctionCalls {
					before := state.Customer.Snapshot()
					result := m.executor.Execute(ctx, call.Name, call.Parameters, before, time.Duration(resolved.FunctionExecTimeoutMs)*time.Millisecond)
					if result.Success {
						state.Customer.Apply(result.AfterState)
					}
					outcomes = append(outcomes, FunctionOutcome{Name: call.Name, Parameters: call.Parameters, Result: result})

					cf := models.CalledFunction{
						ID:                 uuid.NewString(),
						EvaluationID:       evaluationID,
						TurnID:             turnID,
						FunctionName:       call.Name,
						Parameters:         call.Parameters,
						Result:             result.Result,
						Executed:           result.Success,
						ConfidenceScore:    dec.ConfidenceLevel,
						DecisionReasoning:  dec.ThoughtProcess,
						ProcessingTimeMs:   result.ExecutionTimeMs,
						TimingBreakdown:    timing,
						FunctionTemplateID: state.DeciderTemplate.ID,
						GeminiPrompt:       rendered.Rendered,
						GeminiResponse:     resp.Text,
						MockDataBefore:     result.BeforeState,
						MockDataAfter:      result.AfterState,
						TemplateVariables:  rendered.Variables,
						CreatedAt:          time.Now().UTC(),
					}
					state.AppendFunctionCall(cf)
					m.submitCalledFunctionWrite(cf)
				}
				timing.FunctionExecuteEnd = time.Since(start).Milliseconds()
			}
		}
	}

	// Step 6: cost accumulation.
	cost := computeCost(evaluationID, turnID, resolved, cleanerOut.InputTokens, cleanerOut.OutputTokens, deciderInputTokens, deciderOutputTokens, cleanerOut.AIModelUsed)
	m.submitCostWrite(cost)

	timing.End = time.Since(start).Milliseconds()
	timing.TotalMs = timing.End

	// Step 7: emit, fire-and-forget, log-only on failure.
	if m.publisher != nil {
		go func() {
			bgCtx := context.Background()
			if err := m.publisher.Broadcast(bgCtx, evaluationID, "turn_processed", map[string]any{
				"evaluation_id":      evaluationID,
				"turn_id":            turnID,
				"cleaned_text":       cleanedTurn.CleanedText,
				"processing_time_ms": cleanedTurn.ProcessingTimeMs,
			}); err != nil {
				m.logger.Warn("broadcast failed", "evaluation_id", evaluationID, "turn_id", turnID, "error", err)
			}
		}()
	}

	if resolved.NotifyOnComplete && m.isLastTurn(ctx, evaluationID, turn) {
		m.completeEvaluation(ctx, evaluationID, resolved)
	}

	return TurnResult{
		CleanedTurn:     cleanedTurn,
		Decision:        dec,
		FunctionResults: outcomes,
		TotalCost:       cost,
	}, nil
}

// asEngineErr unwraps err to its carried *engineerr.Error, or wraps it
// fresh under fallback if err did not originate from this engine's
// taxonomy (defensive: every caller here already returns *engineerr.Error,
// but WithTiming requires the concrete type).
func asEngineErr(err error, fallback engineerr.Kind) *engineerr.Error {
	var e *engineerr.Error
	if errors.As(err, &e) {
		return e
	}
	return engineerr.Wrap(fallback, "engine call failed", err)
}

// isLastTurn reports whether turn is the highest-sequence turn of its
// conversation, used only to decide whether to fire the
// notify_on_complete completion broadcast.
func (m *Manager) isLastTurn(ctx context.Context, evaluationID string, turn models.Turn) bool {
	turns, err := m.db.TurnsByConversation(ctx, turn.ConversationID)
	if err != nil || len(turns) == 0 {
		return false
	}
	last := turns[len(turns)-1]
	return last.ID == turn.ID
}

// completeEvaluation transitions an evaluation to complete and fires
// the additional "evaluation_complete" broadcast (spec §3 supplemented
// notify_on_complete field; see DESIGN.md).
func (m *Manager) completeEvaluation(ctx context.Context, evaluationID string, resolved models.Resolved) {
	state, ok := m.cache.Get(evaluationID)
	turnsProcessed := 0
	if ok {
		turnsProcessed = state.Evaluation.TurnsProcessed
	}
	if err := m.db.UpdateEvaluationProgress(ctx, evaluationID, models.EvaluationComplete, turnsProcessed); err != nil {
		m.logger.Error("failed to mark evaluation complete", "evaluation_id", evaluationID, "error", err)
		return
	}
	if ok {
		state.Evaluation.Status = models.EvaluationComplete
	}
	if m.publisher != nil {
		go func() {
			if err := m.publisher.Broadcast(context.Background(), evaluationID, "evaluation_complete", map[string]any{
				"evaluation_id": evaluationID,
			}); err != nil {
				m.logger.Warn("completion broadcast failed", "evaluation_id", evaluationID, "error", err)
			}
		}()
	}
}

// submitCalledFunctionWrite persists cf on the background executor, an
// independent database session per task (spec §5 "shared resources" b).
func (m *Manager) submitCalledFunctionWrite(cf models.CalledFunction) {
	if m.bg == nil {
		if err := m.db.CreateCalledFunction(context.Background(), cf); err != nil {
			m.logger.Error("failed to persist called function", "error", err)
		}
		return
	}
	m.bg.Submit(queue.Job{
		Name: "persist-called-function",
		Run: func(ctx context.Context) error {
			return m.db.CreateCalledFunction(ctx, cf)
		},
	})
}

// submitCostWrite persists cost on the background executor.
func (m *Manager) submitCostWrite(cost models.Cost) {
	if m.bg == nil {
		if err := m.db.UpsertCost(context.Background(), cost); err != nil {
			m.logger.Error("failed to persist cost", "error", err)
		}
		return
	}
	m.bg.Submit(queue.Job{
		Name: "persist-cost",
		Run: func(ctx context.Context) error {
			return m.db.UpsertCost(ctx, cost)
		},
	})
}

// computeCost prices cleaner and decider token usage via
// resolved.CostRates, yielding 0 for any model absent from the table
// (spec §9 open question on cost rates).
func computeCost(evaluationID, turnID string, resolved models.Resolved, cleanInTok, cleanOutTok, decideInTok, decideOutTok int, modelUsed string) models.Cost {
	cleanRate := resolved.CostRates[resolved.CleanerModelParams.ModelName]
	decideRate := resolved.CostRates[resolved.DeciderModelParams.ModelName]

	cleaningCost := float64(cleanInTok)/1000*cleanRate.InputPer1k + float64(cleanOutTok)/1000*cleanRate.OutputPer1k
	functionCost := float64(decideInTok)/1000*decideRate.InputPer1k + float64(decideOutTok)/1000*decideRate.OutputPer1k

	return models.Cost{
		ID:                   uuid.NewString(),
		EvaluationID:         evaluationID,
		TurnID:               turnID,
		CleaningInputTokens:  cleanInTok,
		CleaningOutputTokens: cleanOutTok,
		CleaningCost:         cleaningCost,
		FunctionInputTokens:  decideInTok,
		FunctionOutputTokens: decideOutTok,
		FunctionCost:         functionCost,
		TotalTokens:          cleanInTok + cleanOutTok + decideInTok + decideOutTok,
		TotalCost:            cleaningCost + functionCost,
		ModelUsed:            modelUsed,
		CreatedAt:            time.Now().UTC(),
	}
}

// toCleanerVars adapts the context builder's ContextItem shape into the
// loosely-typed map the cleaner stage's template variables expect.
func toCleanerVars(items []evalcontext.ContextItem) []map[string]string {
	out := make([]map[string]string, len(items))
	for i, it := range items {
		out[i] = map[string]string{"speaker": it.Speaker, "cleaned_text": it.CleanedText}
	}
	return out
}

// catalogToContext snapshots the function catalog into the evalcontext
// shape the decider prompt enumerates, sorted for deterministic
// rendering.
func catalogToContext(catalog *functions.Catalog) []evalcontext.CatalogEntry {
	entries := catalog.Entries()
	out := make([]evalcontext.CatalogEntry, 0, len(entries))
	for _, fn := range entries {
		params := make(map[string]any, len(fn.Params))
		for _, p := range fn.Params {
			params[p.Name] = map[string]any{"type": p.Type, "required": p.Required}
		}
		out = append(out, evalcontext.CatalogEntry{Name: fn.Name, Description: fn.Description, Parameters: params})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EvaluationDetails is the get_evaluation_details response (spec §6):
// the evaluation row plus its CleanedTurns, each joined with the
// CalledFunction rows from the same turn.
type EvaluationDetails struct {
	Evaluation   models.Evaluation
	CleanedTurns []CleanedTurnWithFunctions
}

// CleanedTurnWithFunctions pairs one CleanedTurn with the CalledFunction
// rows produced on the same turn.
type CleanedTurnWithFunctions struct {
	CleanedTurn     models.CleanedTurn
	CalledFunctions []models.CalledFunction
}

// GetEvaluationDetails implements get_evaluation_details, always
// reading through persistence so a cold-start (no cached
// EvaluationState) returns output identical to a warm one (spec §8
// scenario 6).
func (m *Manager) GetEvaluationDetails(ctx context.Context, evaluationID string) (EvaluationDetails, error) {
	eval, err := m.db.EvaluationByID(ctx, evaluationID)
	if err != nil {
		return EvaluationDetails{}, engineerr.Wrap(engineerr.KindPersistence, "failed to load evaluation", err)
	}
	cleaned, err := m.db.CleanedTurnsByEvaluation(ctx, evaluationID)
	if err != nil {
		return EvaluationDetails{}, engineerr.Wrap(engineerr.KindPersistence, "failed to load cleaned turns", err)
	}
	calls, err := m.db.CalledFunctionsByEvaluation(ctx, evaluationID)
	if err != nil {
		return EvaluationDetails{}, engineerr.Wrap(engineerr.KindPersistence, "failed to load called functions", err)
	}

	callsByTurn := make(map[string][]models.CalledFunction, len(cleaned))
	for _, cf := range calls {
		callsByTurn[cf.TurnID] = append(callsByTurn[cf.TurnID], cf)
	}

	out := EvaluationDetails{Evaluation: eval}
	for _, ct := range cleaned {
		out.CleanedTurns = append(out.CleanedTurns, CleanedTurnWithFunctions{
			CleanedTurn:     ct,
			CalledFunctions: callsByTurn[ct.TurnID],
		})
	}
	return out, nil
}

// GeminiDetails is the get_gemini_details response (spec §6): the raw
// prompts, responses, timing breakdown, and corrections for one turn.
type GeminiDetails struct {
	CleanerPrompt   string
	CleanerResponse string
	CleanerTiming   models.TimingBreakdown
	Corrections     []models.Correction
	FunctionCalls   []models.CalledFunction
}

// GetGeminiDetails implements get_gemini_details.
func (m *Manager) GetGeminiDetails(ctx context.Context, evaluationID, turnID string) (GeminiDetails, error) {
	ct, err := m.db.CleanedTurnByEvaluationAndTurn(ctx, evaluationID, turnID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GeminiDetails{}, engineerr.New(engineerr.KindPersistence, "no cleaned turn for this evaluation/turn pair")
		}
		return GeminiDetails{}, engineerr.Wrap(engineerr.KindPersistence, "failed to load cleaned turn", err)
	}
	calls, err := m.db.CalledFunctionsByEvaluation(ctx, evaluationID)
	if err != nil {
		return GeminiDetails{}, engineerr.Wrap(engineerr.KindPersistence, "failed to load called functions", err)
	}
	var forTurn []models.CalledFunction
	for _, cf := range calls {
		if cf.TurnID == turnID {
			forTurn = append(forTurn, cf)
		}
	}
	return GeminiDetails{
		CleanerPrompt:   ct.GeminiPrompt,
		CleanerResponse: ct.GeminiResponse,
		CleanerTiming:   ct.TimingBreakdown,
		Corrections:     ct.Corrections,
		FunctionCalls:   forTurn,
	}, nil
}
