package evaluation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scotty-git/sidelinescott-sub003/pkg/customer"
	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
)

// newTestRedis starts an in-process miniredis server for isolation from
// a real Redis instance, following the teacher pack's established
// pattern for Redis-dependent unit tests (miniredis.Run + a client
// pointed at its address).
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func buildTestState() *EvaluationState {
	store := customer.NewStore()
	store.SeedIfAbsent(map[string]any{"role": nil})
	store.Apply(map[string]any{"role": "Director of Marketing"})

	s := &EvaluationState{
		Evaluation:      models.Evaluation{ID: "eval-1", ConversationID: "conv-1"},
		CleanerTemplate: models.PromptTemplate{ID: "tmpl-cleaner"},
		DeciderTemplate: models.PromptTemplate{ID: "tmpl-decider"},
		cleanedByTurn:   map[string]models.CleanedTurn{},
		Customer:        store,
	}
	ct := models.CleanedTurn{TurnID: "turn-1", TurnSequence: 1, CleanedText: "hello"}
	s.AppendCleanedTurn(ct)
	s.AppendFunctionCall(models.CalledFunction{TurnID: "turn-1", FunctionName: "set_role", Executed: true})
	return s
}

func TestRedisStateCache_RoundTrip(t *testing.T) {
	client := newTestRedis(t)
	cache := NewRedisStateCache(client, time.Minute)
	ctx := context.Background()

	original := buildTestState()
	cache.Put(ctx, "eval-1", original)

	got, ok := cache.Get(ctx, "eval-1")
	require.True(t, ok)
	assert.Equal(t, original.Evaluation, got.Evaluation)
	assert.Equal(t, original.CleanedLog(), got.CleanedLog())
	assert.Equal(t, original.FunctionLog(), got.FunctionLog())
	assert.Equal(t, original.Customer.Snapshot(), got.Customer.Snapshot())
}

func TestRedisStateCache_MissOnUnknownKey(t *testing.T) {
	client := newTestRedis(t)
	cache := NewRedisStateCache(client, time.Minute)

	_, ok := cache.Get(context.Background(), "nonexistent")
	assert.False(t, ok)
}

func TestRedisStateCache_EvictRemovesEntry(t *testing.T) {
	client := newTestRedis(t)
	cache := NewRedisStateCache(client, time.Minute)
	ctx := context.Background()

	cache.Put(ctx, "eval-1", buildTestState())
	cache.Evict(ctx, "eval-1")

	_, ok := cache.Get(ctx, "eval-1")
	assert.False(t, ok)
}

func TestRedisStateCache_NilClientIsNoOp(t *testing.T) {
	cache := NewRedisStateCache(nil, 0)
	ctx := context.Background()

	cache.Put(ctx, "eval-1", buildTestState())
	_, ok := cache.Get(ctx, "eval-1")
	assert.False(t, ok)

	cache.Evict(ctx, "eval-1")
}
