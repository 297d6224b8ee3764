// Package cleaner implements the Cleaner Stage (C4): the bypass rule for
// assistant-like speakers, and otherwise a single LLM call that rewrites
// noisy speech-to-text using prior cleaned context, grounded on the
// teacher's SingleShotController (pkg/agent/controller/single_shot.go) —
// one LLM call, then persist, with a text/JSON-tolerant result and a
// fallback path rather than a raised exception.
package cleaner

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/scotty-git/sidelinescott-sub003/pkg/llm"
	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
	"github.com/scotty-git/sidelinescott-sub003/pkg/template"
)

// Input bundles everything one Clean call needs.
type Input struct {
	RawText         string
	Speaker         string
	CleanedContext  []map[string]string // {speaker, cleaned_text}, oldest first
	CleaningLevel   models.CleaningLevel
	TemplateText    string
	ModelParams     models.ModelParams
	Timeout         time.Duration
	AssistantLike   bool
}

// Output carries every field the caller needs to build a CleanedTurn row
// plus the token counts needed for the Cost row.
type Output struct {
	CleanedText      string
	Confidence       models.ConfidenceLevel
	CleaningApplied  bool
	CleaningLevel    models.CleaningLevel
	ContextDetected  string
	AIModelUsed      string
	Corrections      []models.Correction
	ProcessingTimeMs int64
	GeminiPrompt     string
	GeminiResponse   string
	TemplateVars     map[string]any
	InputTokens      int
	OutputTokens     int
	Degraded         bool // true when the fallback path was taken
}

// structuredResult is the shape a cleaner prompt may optionally ask the
// model to return; absence or a parse failure degrades to plain-text mode
// per spec §4.4.
type structuredResult struct {
	CleanedText     string              `json:"cleaned_text"`
	Confidence      string              `json:"confidence"`
	Corrections     []models.Correction `json:"corrections"`
	ContextDetected string              `json:"context_detected"`
}

// Stage runs the Cleaner pipeline stage.
type Stage struct {
	renderer *template.Renderer
	gateway  *llm.Gateway
}

func NewStage(renderer *template.Renderer, gateway *llm.Gateway) *Stage {
	return &Stage{renderer: renderer, gateway: gateway}
}

// Clean implements spec §4.4 in full, including the bypass rule.
func (s *Stage) Clean(ctx context.Context, in Input) (Output, error) {
	start := time.Now()

	if in.AssistantLike {
		return Output{
			CleanedText:      in.RawText,
			Confidence:       models.ConfidenceHigh,
			CleaningApplied:  false,
			CleaningLevel:    models.CleaningNone,
			ContextDetected:  "ai_response",
			AIModelUsed:      "bypass",
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	vars := map[string]any{
		"raw_text":        in.RawText,
		"speaker":         in.Speaker,
		"cleaned_context": in.CleanedContext,
		"cleaning_level":  string(in.CleaningLevel),
	}
	rendered, err := s.renderer.Render(in.TemplateText, vars)
	if err != nil {
		return Output{}, err
	}

	resp, err := s.gateway.Call(ctx, rendered.Rendered, in.ModelParams, in.Timeout)
	if err != nil {
		// Timeout or transport failure: fall back to raw-passthrough,
		// non-fatal unless the caller enforces strict_cleaner.
		return Output{
			CleanedText:      in.RawText,
			Confidence:       models.ConfidenceLow,
			CleaningApplied:  false,
			CleaningLevel:    in.CleaningLevel,
			ContextDetected:  "api_error",
			AIModelUsed:      in.ModelParams.ModelName,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			GeminiPrompt:     rendered.Rendered,
			TemplateVars:     vars,
			Degraded:         true,
		}, err
	}

	out := parseResponse(resp.Text, in.RawText)
	out.ProcessingTimeMs = time.Since(start).Milliseconds()
	out.GeminiPrompt = rendered.Rendered
	out.GeminiResponse = resp.Text
	out.TemplateVars = vars
	out.AIModelUsed = in.ModelParams.ModelName
	out.CleaningLevel = in.CleaningLevel
	out.InputTokens = resp.InputTokens
	out.OutputTokens = resp.OutputTokens
	return out, nil
}

// parseResponse leniently parses the model's response: a balanced JSON
// object with a cleaned_text field wins; anything else degrades to
// text mode with confidence MEDIUM and empty corrections (spec §4.4).
func parseResponse(text string, rawText string) Output {
	trimmed := strings.TrimSpace(text)

	if obj := extractBalancedObject(trimmed); obj != "" {
		var sr structuredResult
		if err := json.Unmarshal([]byte(obj), &sr); err == nil && sr.CleanedText != "" {
			applied := strings.TrimSpace(sr.CleanedText) != strings.TrimSpace(rawText)
			conf := models.ConfidenceMedium
			if sr.Confidence != "" {
				conf = models.ConfidenceLevel(sr.Confidence)
			} else if !applied {
				conf = models.ConfidenceMedium
			}
			ctxDetected := sr.ContextDetected
			if ctxDetected == "" {
				ctxDetected = "structured"
			}
			return Output{
				CleanedText:     sr.CleanedText,
				Confidence:      conf,
				CleaningApplied: applied,
				ContextDetected: ctxDetected,
				Corrections:     sr.Corrections,
			}
		}
	}

	cleaned := trimmed
	applied := cleaned != strings.TrimSpace(rawText)
	conf := models.ConfidenceMedium
	if !applied {
		conf = models.ConfidenceMedium
	}
	return Output{
		CleanedText:     cleaned,
		Confidence:      conf,
		CleaningApplied: applied,
		ContextDetected: "text",
		Corrections:     []models.Correction{},
	}
}

// extractBalancedObject returns the first balanced {...} substring of s,
// respecting string literals so braces inside JSON string values never
// unbalance the scan. Returns "" if no balanced object is found.
func extractBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
