package functions

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome of one function execution (spec §4.6).
type Result struct {
	Success         bool
	Result          string
	BeforeState     map[string]any
	AfterState      map[string]any
	ChangesMade     map[string]any
	ExecutionTimeMs int64
}

// Executor runs a named, catalog-validated function against a mirrored
// customer snapshot with a hard per-call timeout.
type Executor struct {
	catalog *Catalog
}

func NewExecutor(catalog *Catalog) *Executor {
	return &Executor{catalog: catalog}
}

// Execute validates name and parameters, snapshots customer, and applies
// the function's pure transform on a goroutine bounded by timeout. It
// never returns a Go error for a business-logic failure — unknown names,
// validation failures, and transform errors all come back as
// Result{Success: false, Result: <error kind>}, matching the teacher's
// CompositeToolExecutor convention that "error" is reserved for wiring
// failures, not expected business outcomes.
func (e *Executor) Execute(ctx context.Context, name string, params map[string]any, customer map[string]any, timeout time.Duration) Result {
	start := time.Now()
	before := cloneMap(customer)

	fn, ok := e.catalog.Lookup(name)
	if !ok {
		return Result{
			Success:         false,
			Result:          fmt.Sprintf("unknown function: %s", name),
			BeforeState:     before,
			AfterState:      before,
			ChangesMade:     map[string]any{},
			ExecutionTimeMs: elapsedMs(start),
		}
	}

	if err := fn.Validate(params); err != nil {
		return Result{
			Success:         false,
			Result:          fmt.Sprintf("validation error: %v", err),
			BeforeState:     before,
			AfterState:      before,
			ChangesMade:     map[string]any{},
			ExecutionTimeMs: elapsedMs(start),
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		after map[string]any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		after, err := fn.Run(before, params)
		done <- outcome{after, err}
	}()

	select {
	case <-execCtx.Done():
		return Result{
			Success:         false,
			Result:          "execution timed out",
			BeforeState:     before,
			AfterState:      before,
			ChangesMade:     map[string]any{},
			ExecutionTimeMs: elapsedMs(start),
		}
	case o := <-done:
		if o.err != nil {
			return Result{
				Success:         false,
				Result:          fmt.Sprintf("execution error: %v", o.err),
				BeforeState:     before,
				AfterState:      before,
				ChangesMade:     map[string]any{},
				ExecutionTimeMs: elapsedMs(start),
			}
		}
		return Result{
			Success:         true,
			Result:          "ok",
			BeforeState:     before,
			AfterState:      o.after,
			ChangesMade:     diff(before, o.after),
			ExecutionTimeMs: elapsedMs(start),
		}
	}
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func diff(before, after map[string]any) map[string]any {
	changes := make(map[string]any)
	for k, av := range after {
		if bv, ok := before[k]; !ok || bv != av {
			changes[k] = av
		}
	}
	return changes
}
