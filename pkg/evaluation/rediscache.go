package evaluation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scotty-git/sidelinescott-sub003/pkg/customer"
	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
)

// cacheSnapshot is the JSON-serializable projection of an EvaluationState
// used to round-trip it through Redis — EvaluationState itself carries a
// sync.Mutex and is never marshaled directly.
type cacheSnapshot struct {
	Evaluation      models.Evaluation       `json:"evaluation"`
	CleanerTemplate models.PromptTemplate   `json:"cleaner_template"`
	DeciderTemplate models.PromptTemplate   `json:"decider_template"`
	CleanedTurns    []models.CleanedTurn    `json:"cleaned_turns"`
	FunctionLog     []models.CalledFunction `json:"function_log"`
	Customer        map[string]any          `json:"customer"`
}

func snapshotOf(s *EvaluationState) cacheSnapshot {
	return cacheSnapshot{
		Evaluation:      s.Evaluation,
		CleanerTemplate: s.CleanerTemplate,
		DeciderTemplate: s.DeciderTemplate,
		CleanedTurns:    s.cleanedOrder,
		FunctionLog:     s.functionLog,
		Customer:        s.Customer.Snapshot(),
	}
}

func stateFromSnapshot(snap cacheSnapshot) *EvaluationState {
	store := customer.NewStore()
	store.SeedIfAbsent(snap.Customer)

	s := &EvaluationState{
		Evaluation:      snap.Evaluation,
		CleanerTemplate: snap.CleanerTemplate,
		DeciderTemplate: snap.DeciderTemplate,
		cleanedByTurn:   make(map[string]models.CleanedTurn, len(snap.CleanedTurns)),
		cleanedOrder:    snap.CleanedTurns,
		functionLog:     snap.FunctionLog,
		Customer:        store,
	}
	for _, ct := range snap.CleanedTurns {
		s.cleanedByTurn[ct.TurnID] = ct
	}
	return s
}

// RedisStateCache is an optional second-level cache behind the in-memory
// StateCache, consulted on a StateCache miss before Postgres: a
// serialized EvaluationState snapshot keyed by evaluation
// ID, so a StateCache eviction or a process restart doesn't always cost
// a full Postgres rebuild. Grounded on the teacher's
// internal/skills.RedisSkillsCache idiom (nil-receiver no-ops, get/set
// against a single key namespace, warn-and-miss on any Redis error)
// found via intelligencedev-manifold, adapted from caching rendered
// prompts to caching evaluation working state. Redis is accelerant
// only: a miss or an outage always falls back to RebuildState against
// Postgres, so I4 (cold-start rebuild fidelity) holds regardless of
// whether Redis is reachable.
type RedisStateCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStateCache wraps client. A nil client is valid and makes every
// method a no-op, so the engine runs with Redis caching disabled when no
// address is configured.
func NewRedisStateCache(client redis.UniversalClient, ttl time.Duration) *RedisStateCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStateCache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "redis-state-cache"),
	}
}

func (c *RedisStateCache) key(evaluationID string) string {
	return "evalengine:state:" + evaluationID
}

// Get returns the cached state for evaluationID, if present and
// unmarshalable. Any Redis or decode error is treated as a miss.
func (c *RedisStateCache) Get(ctx context.Context, evaluationID string) (*EvaluationState, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.key(evaluationID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis state cache get failed", "evaluation_id", evaluationID, "error", err)
		}
		return nil, false
	}
	var snap cacheSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warn("redis state cache snapshot corrupt", "evaluation_id", evaluationID, "error", err)
		return nil, false
	}
	return stateFromSnapshot(snap), true
}

// Put writes a snapshot of s for evaluationID with the configured TTL.
// Failures are logged, never returned — callers already have the
// authoritative state in hand from the in-memory cache or Postgres.
func (c *RedisStateCache) Put(ctx context.Context, evaluationID string, s *EvaluationState) {
	if c == nil || c.client == nil {
		return
	}
	body, err := json.Marshal(snapshotOf(s))
	if err != nil {
		c.logger.Warn("failed to marshal state snapshot", "evaluation_id", evaluationID, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(evaluationID), body, c.ttl).Err(); err != nil {
		c.logger.Warn("redis state cache set failed", "evaluation_id", evaluationID, "error", err)
	}
}

// Evict removes evaluationID's snapshot, forcing the next miss through
// both the in-memory cache and Redis to rebuild from Postgres.
func (c *RedisStateCache) Evict(ctx context.Context, evaluationID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(evaluationID)).Err(); err != nil {
		c.logger.Warn("redis state cache del failed", "evaluation_id", evaluationID, "error", err)
	}
}
