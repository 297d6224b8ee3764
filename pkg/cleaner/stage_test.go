package cleaner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scotty-git/sidelinescott-sub003/pkg/llm"
	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
	"github.com/scotty-git/sidelinescott-sub003/pkg/template"
)

type stubProvider struct {
	text string
	err  error
	wait time.Duration
}

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		}
	}
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Text: s.text, Success: true}, nil
}

func TestCleanBypassesAssistantSpeaker(t *testing.T) {
	stage := NewStage(template.NewRenderer(), llm.NewGateway(map[string]llm.Provider{"stub": &stubProvider{}}, "stub", 2))
	out, err := stage.Clean(context.Background(), Input{RawText: "OK.", AssistantLike: true})
	require.NoError(t, err)
	assert.Equal(t, "OK.", out.CleanedText)
	assert.False(t, out.CleaningApplied)
	assert.Equal(t, models.CleaningNone, out.CleaningLevel)
	assert.Equal(t, models.ConfidenceHigh, out.Confidence)
	assert.Equal(t, "bypass", out.AIModelUsed)
}

func TestCleanStructuredJSONResponse(t *testing.T) {
	gw := llm.NewGateway(map[string]llm.Provider{"stub": &stubProvider{text: `Sure, here you go: {"cleaned_text":"I am the Director of Marketing","confidence":"HIGH"} thanks`}}, "stub", 2)
	stage := NewStage(template.NewRenderer(), gw)
	out, err := stage.Clean(context.Background(), Input{
		RawText:       "I am the vector of Marketing",
		Speaker:       "user",
		TemplateText:  "Clean: {{.raw_text}} ({{.speaker}}) ctx={{.cleaned_context}} level={{.cleaning_level}}",
		CleaningLevel: models.CleaningFull,
		Timeout:       time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "I am the Director of Marketing", out.CleanedText)
	assert.True(t, out.CleaningApplied)
	assert.Equal(t, models.ConfidenceHigh, out.Confidence)
}

func TestCleanFallsBackOnTimeout(t *testing.T) {
	gw := llm.NewGateway(map[string]llm.Provider{"stub": &stubProvider{wait: 50 * time.Millisecond}}, "stub", 2)
	stage := NewStage(template.NewRenderer(), gw)
	out, err := stage.Clean(context.Background(), Input{
		RawText:      "hello",
		Speaker:      "user",
		TemplateText: "Clean: {{.raw_text}} {{.speaker}} {{.cleaned_context}} {{.cleaning_level}}",
		Timeout:      5 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Equal(t, "hello", out.CleanedText)
	assert.Equal(t, models.ConfidenceLow, out.Confidence)
	assert.Equal(t, "api_error", out.ContextDetected)
	assert.False(t, out.CleaningApplied)
}

func TestCleanPlainTextDegradesToMedium(t *testing.T) {
	gw := llm.NewGateway(map[string]llm.Provider{"stub": &stubProvider{text: "Yes"}}, "stub", 2)
	stage := NewStage(template.NewRenderer(), gw)
	out, err := stage.Clean(context.Background(), Input{
		RawText:      "Yes",
		Speaker:      "user",
		TemplateText: "{{.raw_text}} {{.speaker}} {{.cleaned_context}} {{.cleaning_level}}",
		Timeout:      time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "Yes", out.CleanedText)
	assert.False(t, out.CleaningApplied)
	assert.Equal(t, models.ConfidenceMedium, out.Confidence)
}
