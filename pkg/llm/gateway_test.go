package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scotty-git/sidelinescott-sub003/pkg/engineerr"
	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
)

type fakeProvider struct {
	name  string
	delay time.Duration
	resp  Response
	err   error

	seenModelName string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req Request) (Response, error) {
	f.seenModelName = req.Params.ModelName
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	return f.resp, f.err
}

func TestGatewayCallSuccess(t *testing.T) {
	p := &fakeProvider{name: "fake", resp: Response{Text: "hello", Success: true, InputTokens: 3, OutputTokens: 1}}
	gw := NewGateway(map[string]Provider{"fake": p}, "fake", 4)

	resp, err := gw.Call(context.Background(), "prompt", models.ModelParams{}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, 3, resp.InputTokens)
}

func TestGatewayCallTimeout(t *testing.T) {
	p := &fakeProvider{name: "fake", delay: 200 * time.Millisecond}
	gw := NewGateway(map[string]Provider{"fake": p}, "fake", 4)

	_, err := gw.Call(context.Background(), "prompt", models.ModelParams{}, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.KindLLMTimeout))
}

func TestGatewayResolvesProviderPrefix(t *testing.T) {
	anthropic := &fakeProvider{name: "anthropic"}
	openai := &fakeProvider{name: "openai", resp: Response{Text: "ok", Success: true}}
	gw := NewGateway(map[string]Provider{"anthropic": anthropic, "openai": openai}, "anthropic", 2)

	resp, err := gw.Call(context.Background(), "x", models.ModelParams{ModelName: "openai:gpt-4o-mini"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, "gpt-4o-mini", openai.seenModelName)
	assert.Empty(t, anthropic.seenModelName)
}
