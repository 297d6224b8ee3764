package customer

import "regexp"

// compiledPattern pairs a precompiled regex with its replacement text,
// grounded on the teacher's masking.CompiledPattern shape (pkg/masking),
// simplified here to a fixed built-in set since the mirrored customer
// record has no per-server configuration layer to resolve patterns from.
type compiledPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

var builtinPatterns = []compiledPattern{
	{name: "email", regex: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), replacement: "***@***.***"},
	{name: "ssn", regex: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), replacement: "***-**-****"},
	{name: "phone", regex: regexp.MustCompile(`\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b`), replacement: "***-***-****"},
}

// Masker redacts PII-shaped substrings from string fields of a mirrored
// customer snapshot before it is rendered into a decider prompt. It never
// mutates the snapshot used as the actual customer state — masking is a
// presentation-only transform applied at render time (spec §4.7's "only
// C6 mutates it" still holds for the real state).
type Masker struct {
	patterns []compiledPattern
}

func NewMasker() *Masker {
	return &Masker{patterns: builtinPatterns}
}

// Mask returns a copy of customer with every string value's PII-shaped
// substrings redacted. Non-string values pass through unchanged.
func (m *Masker) Mask(customer map[string]any) map[string]any {
	out := make(map[string]any, len(customer))
	for k, v := range customer {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		for _, p := range m.patterns {
			s = p.regex.ReplaceAllString(s, p.replacement)
		}
		out[k] = s
	}
	return out
}
