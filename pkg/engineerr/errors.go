// Package engineerr defines the engine's closed error taxonomy: a fixed
// set of kinds (not Go types) carried on a single wrapped error type, so
// callers can switch on Kind without type-asserting across packages.
package engineerr

import (
	"errors"
	"fmt"

	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
)

// Kind identifies one of the taxonomy's error categories (spec §7).
type Kind string

const (
	KindTemplateRender      Kind = "TemplateRenderError"
	KindLLMTimeout          Kind = "LLMTimeout"
	KindLLMTransport        Kind = "LLMTransportError"
	KindLLMQuota            Kind = "LLMQuotaError"
	KindDecisionParse       Kind = "DecisionParseError"
	KindFunctionValidation  Kind = "FunctionValidationError"
	KindFunctionExecution   Kind = "FunctionExecutionError"
	KindPersistence         Kind = "PersistenceError"
	KindIdempotencyHit      Kind = "IdempotencyHit"
	KindConfiguration       Kind = "ConfigurationError"
)

// Error is the engine's single typed error, carrying a Kind, a message,
// and (when the failure reached the Evaluation Manager) the timing
// breakdown observed before the failure (spec §7, "User-visible failure
// behavior").
type Error struct {
	Kind    Kind
	Message string
	Timing  *models.TimingBreakdown
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error carrying the underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithTiming attaches a timing breakdown snapshot to an existing error,
// returning a new *Error so the original is never mutated from under a
// caller that may still hold it.
func WithTiming(err *Error, timing models.TimingBreakdown) *Error {
	cp := *err
	cp.Timing = &timing
	return &cp
}

// Is reports whether err carries the given Kind, unwrapping through any
// wrapper chain via errors.As.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IdempotencyHit is a non-error short-circuit signal: "this turn's
// CleanedTurn already exists, return it and make no LLM calls" (I2).
// Implemented as a dedicated sentinel rather than an *Error because
// callers treat it as a control-flow branch, not a failure to report.
var ErrIdempotencyHit = errors.New("idempotency hit: cleaned turn already exists")
