package llm

import "context"

// Provider is the single abstraction a concrete LLM SDK must satisfy so
// that no provider specifics leak past the Gateway into C4/C5/C8 (spec
// §6, "LLM provider contract"). Generate is expected to be synchronous
// and to honor ctx cancellation/deadline.
type Provider interface {
	// Name identifies the provider for logging and the "model_used" field.
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}
