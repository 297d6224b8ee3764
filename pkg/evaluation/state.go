// Package evaluation implements the Evaluation Manager (C8): the
// per-evaluation state machine that orchestrates the Cleaner and Decider
// stages, persists their output, and returns a composite turn result.
// The in-memory EvaluationState and its process-wide cache are grounded
// on the teacher's active_evaluations-style in-process maps, replaced
// here with an explicit bounded cache plus a per-evaluation mutex
// (spec §9's "re-architected source patterns" entry on global
// in-process state).
package evaluation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/scotty-git/sidelinescott-sub003/pkg/customer"
	"github.com/scotty-git/sidelinescott-sub003/pkg/database"
	"github.com/scotty-git/sidelinescott-sub003/pkg/evalcontext"
	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
)

// EvaluationState is the in-memory working set for one evaluation: the
// cleaned-turn log, the function-call log, the mirrored customer
// snapshot, and the pinned templates/settings needed to process further
// turns without re-fetching them per call.
type EvaluationState struct {
	mu sync.Mutex

	Evaluation       models.Evaluation
	CleanerTemplate  models.PromptTemplate
	DeciderTemplate  models.PromptTemplate

	// cleanedByTurn indexes CleanedTurn rows by raw turn ID for the
	// idempotency fast path (I2); cleanedOrder holds the same rows
	// sorted by turn_sequence for sliding-window context building (I3).
	cleanedByTurn map[string]models.CleanedTurn
	cleanedOrder  []models.CleanedTurn

	functionLog []models.CalledFunction

	Customer *customer.Store
}

// Lock acquires the per-evaluation mutex enforcing spec §5's ordering
// guarantee: turn processing for one evaluation is fully serialized
// across steps 1-6 of process_turn, while distinct evaluations proceed
// in parallel.
func (s *EvaluationState) Lock()   { s.mu.Lock() }
func (s *EvaluationState) Unlock() { s.mu.Unlock() }

// CleanedTurnFor returns the persisted CleanedTurn for turnID, if any —
// the idempotency check backing spec §4.8 step 1.
func (s *EvaluationState) CleanedTurnFor(turnID string) (models.CleanedTurn, bool) {
	ct, ok := s.cleanedByTurn[turnID]
	return ct, ok
}

// AppendCleanedTurn records a freshly-persisted CleanedTurn in both the
// lookup index and the turn_sequence-ordered log.
func (s *EvaluationState) AppendCleanedTurn(ct models.CleanedTurn) {
	s.cleanedByTurn[ct.TurnID] = ct
	s.cleanedOrder = append(s.cleanedOrder, ct)
	sort.Slice(s.cleanedOrder, func(i, j int) bool {
		return s.cleanedOrder[i].TurnSequence < s.cleanedOrder[j].TurnSequence
	})
}

// CleanedLog returns the turn_sequence-ordered log as evalcontext refs,
// excluding nothing — callers window it themselves.
func (s *EvaluationState) CleanedLog() []evalcontext.CleanedTurnRef {
	out := make([]evalcontext.CleanedTurnRef, len(s.cleanedOrder))
	for i, ct := range s.cleanedOrder {
		out[i] = evalcontext.CleanedTurnRef{
			Speaker:      string(ct.Speaker),
			CleanedText:  ct.CleanedText,
			TurnSequence: ct.TurnSequence,
		}
	}
	return out
}

// AppendFunctionCall records a persisted CalledFunction in created_at
// order (the order calls are appended in is already created_at order,
// since the decider's decision list is executed and persisted in
// sequence within a single turn).
func (s *EvaluationState) AppendFunctionCall(cf models.CalledFunction) {
	s.functionLog = append(s.functionLog, cf)
}

// FunctionLog returns the function-call log as evalcontext refs.
func (s *EvaluationState) FunctionLog() []evalcontext.FunctionCallRef {
	out := make([]evalcontext.FunctionCallRef, len(s.functionLog))
	for i, cf := range s.functionLog {
		out[i] = evalcontext.FunctionCallRef{
			Function:   cf.FunctionName,
			Parameters: cf.Parameters,
			Result:     cf.Result,
			Success:    cf.Executed,
		}
	}
	return out
}

// StateCache is a bounded, mutex-guarded map of evaluation ID to
// EvaluationState. A coarse lock guards insert/lookup/evict; each
// individual state additionally carries its own mutex for the
// serialization of steps 1-6 within a single evaluation (spec §5,
// "shared resources"). building tracks evaluation IDs currently being
// rebuilt, so concurrent cache misses for the same ID wait on a single
// build instead of each constructing their own EvaluationState — see
// GetOrBuild.
type StateCache struct {
	mu       sync.RWMutex
	cap      int
	order    []string
	byID     map[string]*EvaluationState
	building map[string]chan struct{}
}

// NewStateCache builds a StateCache bounded to capacity entries. A
// capacity of 0 or less is treated as unbounded.
func NewStateCache(capacity int) *StateCache {
	return &StateCache{cap: capacity, byID: make(map[string]*EvaluationState)}
}

// Get returns the cached state for evaluationID, if present.
func (c *StateCache) Get(evaluationID string) (*EvaluationState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[evaluationID]
	return s, ok
}

// GetOrBuild returns the cached state for evaluationID, or runs build
// exactly once per evaluationID to produce it when no entry is cached.
// Concurrent callers that miss the same evaluationID block on the same
// in-flight build rather than each constructing and inserting their own
// EvaluationState — without this, two goroutines racing a cold cache
// would end up mutating two different EvaluationState instances (each
// with its own independent mutex) for the same evaluation, defeating the
// per-evaluation serialization spec §5 requires. A build that fails is
// not cached; the next caller (original or a waiter that saw no result)
// retries it.
func (c *StateCache) GetOrBuild(ctx context.Context, evaluationID string, build func(context.Context) (*EvaluationState, error)) (*EvaluationState, error) {
	for {
		c.mu.Lock()
		if s, ok := c.byID[evaluationID]; ok {
			c.mu.Unlock()
			return s, nil
		}
		if ch, inFlight := c.building[evaluationID]; inFlight {
			c.mu.Unlock()
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if c.building == nil {
			c.building = make(map[string]chan struct{})
		}
		done := make(chan struct{})
		c.building[evaluationID] = done
		c.mu.Unlock()

		s, err := build(ctx)

		c.mu.Lock()
		delete(c.building, evaluationID)
		if err == nil {
			c.insertLocked(evaluationID, s)
		}
		c.mu.Unlock()
		close(done)

		return s, err
	}
}

// insertLocked inserts or replaces the state for evaluationID, evicting
// the oldest entry first if the cache is at capacity. Callers must hold
// c.mu.
func (c *StateCache) insertLocked(evaluationID string, s *EvaluationState) {
	if _, exists := c.byID[evaluationID]; !exists {
		c.order = append(c.order, evaluationID)
	}
	c.byID[evaluationID] = s
	if c.cap > 0 {
		for len(c.order) > c.cap {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.byID, oldest)
		}
	}
}

// Put inserts or replaces the state for evaluationID, evicting the
// oldest entry first if the cache is at capacity.
func (c *StateCache) Put(evaluationID string, s *EvaluationState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(evaluationID, s)
}

// Evict removes evaluationID from the cache, forcing the next
// process_turn call to rebuild it from persistence.
func (c *StateCache) Evict(evaluationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, evaluationID)
	for i, id := range c.order {
		if id == evaluationID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// RebuildState reconstructs an EvaluationState from persistence: the
// evaluation row, its two pinned templates, every CleanedTurn and
// CalledFunction row, and the mirrored customer record folded from the
// CalledFunction log (I4). It runs on a cache miss when no Redis
// snapshot is available, and it must produce a state identical to one
// built online.
func RebuildState(ctx context.Context, db *database.Client, evaluationID string) (*EvaluationState, error) {
	eval, err := db.EvaluationByID(ctx, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluation %s: %w", evaluationID, err)
	}
	cleanerTpl, err := db.PromptTemplateByID(ctx, eval.PromptTemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cleaner template: %w", err)
	}
	deciderTpl, err := db.PromptTemplateByID(ctx, eval.FunctionPromptTemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load decider template: %w", err)
	}
	cleaned, err := db.CleanedTurnsByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cleaned turns: %w", err)
	}
	calls, err := db.CalledFunctionsByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load called functions: %w", err)
	}

	replayed := make([]customer.ReplayedCall, len(calls))
	for i, cf := range calls {
		replayed[i] = customer.ReplayedCall{AfterState: cf.MockDataAfter, Executed: cf.Executed}
	}
	store := customer.RebuildFromLog(eval.SeedCustomer, replayed)

	s := &EvaluationState{
		Evaluation:      eval,
		CleanerTemplate: cleanerTpl,
		DeciderTemplate: deciderTpl,
		cleanedByTurn:   make(map[string]models.CleanedTurn, len(cleaned)),
		cleanedOrder:    cleaned,
		functionLog:     calls,
		Customer:        store,
	}
	for _, ct := range cleaned {
		s.cleanedByTurn[ct.TurnID] = ct
	}
	return s, nil
}
