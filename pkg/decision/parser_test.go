package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredResponseWithProse(t *testing.T) {
	text := `Sure, here is my decision:
{
  "thought_process": "customer wants their role updated",
  "function_calls": [
    {"name": "update_customer_role", "parameters": {"role": "Director of Marketing"}}
  ],
  "confidence_level": "HIGH"
}
Let me know if you need anything else.`

	d := Parse(text)
	require.Empty(t, d.ParseError)
	require.Len(t, d.FunctionCalls, 1)
	assert.Equal(t, "update_customer_role", d.FunctionCalls[0].Name)
	assert.Equal(t, "Director of Marketing", d.FunctionCalls[0].Parameters["role"])
	assert.Equal(t, "HIGH", d.ConfidenceLevel)
	assert.Equal(t, "customer wants their role updated", d.ThoughtProcess)
}

func TestParseNoFunctionCallsIsNotAnError(t *testing.T) {
	d := Parse(`{"thought_process": "nothing to do"}`)
	require.Empty(t, d.ParseError)
	assert.Empty(t, d.FunctionCalls)
}

func TestParseUnknownTopLevelKeysRetainedInExtra(t *testing.T) {
	d := Parse(`{"function_calls": [], "debug_trace": {"step": 1}}`)
	require.Empty(t, d.ParseError)
	require.Contains(t, d.Extra, "debug_trace")
}

func TestParseNoJSONObjectFound(t *testing.T) {
	d := Parse("I don't think any action is needed here.")
	assert.Equal(t, "no_json_object_found", d.ParseError)
	assert.Empty(t, d.FunctionCalls)
}

func TestParseInvalidJSONDegradesGracefully(t *testing.T) {
	d := Parse(`{"function_calls": [oops]}`)
	assert.NotEmpty(t, d.ParseError)
	assert.Empty(t, d.FunctionCalls)
}

func TestParseMissingParametersDefaultsToEmptyMap(t *testing.T) {
	d := Parse(`{"function_calls": [{"name": "noop"}]}`)
	require.Empty(t, d.ParseError)
	require.Len(t, d.FunctionCalls, 1)
	assert.NotNil(t, d.FunctionCalls[0].Parameters)
	assert.Empty(t, d.FunctionCalls[0].Parameters)
}
