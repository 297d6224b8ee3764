// Package decision implements the Decision Parser (C5): extraction of the
// decider's structured function-decision JSON from a free-form LLM
// response, tolerant of surrounding prose but strict about shape.
// Grounded loosely on the teacher's ParseReActResponse
// (pkg/agent/controller/react_parser.go) tolerant-of-prose parsing idiom;
// the balanced-object extraction itself has no direct teacher analogue
// and is hand-written against spec §4.5.
package decision

import (
	"encoding/json"
	"strings"
)

// FunctionCall is one entry of a parsed decision's function_calls list.
type FunctionCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// Decision is the parser's typed output. ParseError is empty on success;
// when non-empty, FunctionCalls is always empty (spec §4.5, §8).
type Decision struct {
	FunctionCalls  []FunctionCall `json:"function_calls"`
	ThoughtProcess string         `json:"thought_process,omitempty"`
	ConfidenceLevel string        `json:"confidence_level,omitempty"`
	Extra          map[string]json.RawMessage `json:"-"`
	ParseError     string         `json:"parse_error,omitempty"`
}

var knownTopLevelKeys = map[string]bool{
	"function_calls":   true,
	"thought_process":  true,
	"confidence_level": true,
}

// Parse extracts the first balanced JSON object from text and decodes it
// into a Decision. A hard parse failure yields
// Decision{FunctionCalls: [], ParseError: <kind>} — non-fatal to turn
// processing (spec §4.5).
func Parse(text string) Decision {
	obj := extractBalancedObject(text)
	if obj == "" {
		return Decision{FunctionCalls: []FunctionCall{}, ParseError: "no_json_object_found"}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Decision{FunctionCalls: []FunctionCall{}, ParseError: "invalid_json: " + err.Error()}
	}

	d := Decision{FunctionCalls: []FunctionCall{}, Extra: map[string]json.RawMessage{}}

	if fc, ok := raw["function_calls"]; ok {
		var calls []rawFunctionCall
		if err := json.Unmarshal(fc, &calls); err != nil {
			return Decision{FunctionCalls: []FunctionCall{}, ParseError: "invalid_function_calls: " + err.Error()}
		}
		for _, c := range calls {
			params := c.Parameters
			if params == nil {
				params = map[string]any{}
			}
			d.FunctionCalls = append(d.FunctionCalls, FunctionCall{Name: c.Name, Parameters: params})
		}
	}

	if tp, ok := raw["thought_process"]; ok {
		_ = json.Unmarshal(tp, &d.ThoughtProcess)
	}
	if cl, ok := raw["confidence_level"]; ok {
		_ = json.Unmarshal(cl, &d.ConfidenceLevel)
	}

	for k, v := range raw {
		if !knownTopLevelKeys[k] {
			d.Extra[k] = v
		}
	}

	return d
}

type rawFunctionCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// extractBalancedObject returns the first balanced {...} substring of s,
// respecting string literals, matching the cleaner stage's identical
// scanner (duplicated rather than shared: the two parsers are
// independent boundaries with no common abstraction worth forcing).
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
