package evalcontext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanerContextWindowAndOrder(t *testing.T) {
	b := NewBuilder()
	log := []CleanedTurnRef{
		{Speaker: "user", CleanedText: "one", TurnSequence: 1},
		{Speaker: "assistant", CleanedText: "two", TurnSequence: 2},
		{Speaker: "user", CleanedText: "three", TurnSequence: 3},
	}

	got := b.CleanerContext(log, 2)
	assert.Equal(t, []ContextItem{{Speaker: "assistant", CleanedText: "two"}, {Speaker: "user", CleanedText: "three"}}, got)
}

func TestCleanerContextZeroWindowDisabled(t *testing.T) {
	b := NewBuilder()
	log := []CleanedTurnRef{{Speaker: "user", CleanedText: "one"}}
	got := b.CleanerContext(log, 0)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestDeciderContextIncludesCurrentTurn(t *testing.T) {
	b := NewBuilder()
	cleaned := []CleanedTurnRef{{Speaker: "user", CleanedText: "I am the Director of Marketing"}}
	got := b.DeciderContext(DeciderContextInput{
		CleanedLog:         cleaned,
		CurrentCleanedText: "I am the Director of Marketing",
		Speaker:            "user",
		TurnSequence:       1,
		WindowDecider:      20,
		WindowFunctions:    10,
		Catalog:            []CatalogEntry{{Name: "set_role"}},
	})
	assert.Len(t, got.CleanedContext, 1)
	assert.Equal(t, "I am the Director of Marketing", got.CallContext.UserRequest)
	assert.Len(t, got.FunctionCatalog, 1)
	assert.Empty(t, got.FunctionContext)
}
