// Package llm implements the LLM Gateway (C1): a synchronous
// request/response call to a model provider with per-call timeout,
// cancellation, raw capture, and token accounting.
package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/scotty-git/sidelinescott-sub003/pkg/engineerr"
	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
)

// Gateway dispatches a single prompt to a selected Provider, bounding the
// number of concurrent in-flight provider calls with a buffered semaphore
// channel — the same shape as the teacher's worker-pool sizing (pkg/queue),
// generalized from "N polling goroutines" to "N concurrent outbound calls".
type Gateway struct {
	providers map[string]Provider
	defaultProvider string
	sem       chan struct{}
	logger    *slog.Logger
}

// NewGateway builds a Gateway. defaultProvider names the key in providers
// used when a model name carries no "provider:" prefix. maxConcurrent
// bounds in-flight provider calls (spec §5, "bounded worker pool").
func NewGateway(providers map[string]Provider, defaultProvider string, maxConcurrent int) *Gateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Gateway{
		providers:       providers,
		defaultProvider: defaultProvider,
		sem:             make(chan struct{}, maxConcurrent),
		logger:          slog.Default().With("component", "llm-gateway"),
	}
}

// Call dispatches prompt with model_params and a hard timeout. On timeout
// expiry the call is abandoned: the in-flight provider call is not
// awaited further and a *engineerr.Error{Kind: KindLLMTimeout} is
// returned immediately when the deadline fires, per spec §4.1's
// cancellation semantics.
func (g *Gateway) Call(ctx context.Context, prompt string, params models.ModelParams, timeout time.Duration) (Response, error) {
	provider, modelName, err := g.resolveProvider(params.ModelName)
	if err != nil {
		return Response{}, err
	}
	params.ModelName = modelName

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case g.sem <- struct{}{}:
		defer func() { <-g.sem }()
	case <-callCtx.Done():
		return Response{}, timeoutOrCancel(callCtx)
	}

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := provider.Generate(callCtx, Request{Prompt: prompt, Params: params})
		done <- result{resp, err}
	}()

	select {
	case <-callCtx.Done():
		g.logger.Warn("llm call abandoned", "provider", provider.Name(), "reason", callCtx.Err())
		return Response{}, timeoutOrCancel(callCtx)
	case r := <-done:
		if r.err != nil {
			return Response{}, classifyProviderError(r.err)
		}
		return r.resp, nil
	}
}

func (g *Gateway) resolveProvider(modelName string) (Provider, string, error) {
	if idx := strings.Index(modelName, ":"); idx > 0 {
		name, rest := modelName[:idx], modelName[idx+1:]
		if p, ok := g.providers[name]; ok {
			return p, rest, nil
		}
	}
	if p, ok := g.providers[g.defaultProvider]; ok {
		return p, modelName, nil
	}
	// No provider configured at all is a configuration error the caller
	// should have caught at create_evaluation; surfacing via a panic would
	// violate "process_turn always returns a structured result", so fall
	// back to whichever provider exists, deterministically, by map order
	// being irrelevant since there is exactly one entry in practice.
	for _, p := range g.providers {
		return p, modelName, nil
	}
	return nil, modelName, engineerr.New(engineerr.KindConfiguration, "no llm provider configured")
}

func timeoutOrCancel(ctx context.Context) *engineerr.Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return engineerr.New(engineerr.KindLLMTimeout, "llm call exceeded its timeout")
	}
	return engineerr.Wrap(engineerr.KindLLMTransport, "llm call cancelled", ctx.Err())
}

func classifyProviderError(err error) *engineerr.Error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") || strings.Contains(msg, "429"):
		return engineerr.Wrap(engineerr.KindLLMQuota, "llm provider quota exceeded", err)
	default:
		return engineerr.Wrap(engineerr.KindLLMTransport, "llm provider call failed", err)
	}
}
