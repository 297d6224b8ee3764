package customer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeedIfAbsentOnlySeedsOnce(t *testing.T) {
	s := NewStore()
	s.SeedIfAbsent(map[string]any{"role": nil})
	s.Apply(map[string]any{"role": "Director of Marketing"})
	s.SeedIfAbsent(map[string]any{"role": "should-not-overwrite"})

	assert.Equal(t, "Director of Marketing", s.Snapshot()["role"])
}

func TestRebuildFromLogMatchesLiveExecution(t *testing.T) {
	seed := map[string]any{"role": nil}

	live := NewStore()
	live.SeedIfAbsent(seed)
	live.Apply(map[string]any{"role": "Director of Marketing"})

	rebuilt := RebuildFromLog(seed, []ReplayedCall{
		{Executed: false, AfterState: map[string]any{"role": "ignored"}},
		{Executed: true, AfterState: map[string]any{"role": "Director of Marketing"}},
	})

	assert.Equal(t, live.Snapshot(), rebuilt.Snapshot())
}

func TestMaskerRedactsEmailAndSSN(t *testing.T) {
	m := NewMasker()
	masked := m.Mask(map[string]any{
		"email": "jane.doe@example.com",
		"ssn":   "123-45-6789",
		"role":  "Director of Marketing",
	})
	assert.Equal(t, "***@***.***", masked["email"])
	assert.Equal(t, "***-**-****", masked["ssn"])
	assert.Equal(t, "Director of Marketing", masked["role"])
}
