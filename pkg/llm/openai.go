package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIProvider is the secondary provider wired to exercise the rest of
// the pack's LLM SDK surface (DESIGN.md). Selected when a model name is
// prefixed "openai:" by the caller's model_params.model_name.
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Params.ModelName
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	params := openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.Params.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.Params.MaxTokens))
	}
	if req.Params.Temperature != nil {
		params.Temperature = openai.Float(*req.Params.Temperature)
	}
	if req.Params.TopP != nil {
		params.TopP = openai.Float(*req.Params.TopP)
	}

	requestedAt := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	respondedAt := time.Now()
	if err != nil {
		return Response{RequestedAt: requestedAt, RespondedAt: respondedAt}, fmt.Errorf("openai chat.completions.new: %w", err)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	return Response{
		Text:         text,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		RawRequest:   req.Prompt,
		RawResponse:  text,
		RequestedAt:  requestedAt,
		RespondedAt:  respondedAt,
		Success:      true,
	}, nil
}
