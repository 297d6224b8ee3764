package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider calls the Anthropic Messages API directly. It is the
// default provider (DESIGN.md's Open Question decision) and the concrete
// replacement for the teacher's gRPC sidecar transport: same "single
// synchronous request/response" shape, backed by a real provider SDK
// instead of a hand-rolled protobuf service.
type AnthropicProvider struct {
	client *anthropic.Client
}

// NewAnthropicProvider builds a provider against the given API key. An
// empty key still constructs a client; the SDK surfaces the auth failure
// on the first call, which the Gateway reports as LLMTransportError.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &client}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Params.ModelName
	if model == "" {
		model = string(anthropic.ModelClaude3_5HaikuLatest)
	}
	maxTokens := int64(1024)
	if req.Params.MaxTokens != nil {
		maxTokens = int64(*req.Params.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Params.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Params.Temperature)
	}
	if req.Params.TopP != nil {
		params.TopP = anthropic.Float(*req.Params.TopP)
	}
	if req.Params.TopK != nil {
		params.TopK = anthropic.Int(int64(*req.Params.TopK))
	}

	requestedAt := time.Now()
	msg, err := p.client.Messages.New(ctx, params)
	respondedAt := time.Now()
	if err != nil {
		return Response{RequestedAt: requestedAt, RespondedAt: respondedAt}, fmt.Errorf("anthropic messages.new: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return Response{
		Text:         text,
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		RawRequest:   req.Prompt,
		RawResponse:  text,
		RequestedAt:  requestedAt,
		RespondedAt:  respondedAt,
		Success:      true,
	}, nil
}
