package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/scotty-git/sidelinescott-sub003/pkg/database"
	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
)

func newTestPublisher(t *testing.T) (*Publisher, *database.Client) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	client, err := database.NewClient(ctx, database.Config{
		Host: host, Port: port.Int(), User: "test", Password: "test", Database: "test",
		SSLMode: "disable", MaxOpenConns: 10, MaxIdleConns: 2,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	conv := models.Conversation{ID: "conv-evt", CreatedAt: time.Now().UTC()}
	require.NoError(t, client.CreateConversation(ctx, conv))
	tpl := models.PromptTemplate{ID: "tpl-evt", Name: "x", TemplateText: "x", CreatedAt: time.Now().UTC()}
	require.NoError(t, client.CreatePromptTemplate(ctx, tpl))
	require.NoError(t, client.CreateEvaluation(ctx, models.Evaluation{
		ID: "eval-evt", ConversationID: conv.ID, PromptTemplateID: tpl.ID, FunctionPromptTemplateID: tpl.ID,
		Status: models.EvaluationActive, CreatedAt: time.Now().UTC(),
	}))

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := database.OpenStdlib(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPublisher(db), client
}

func TestBroadcastPersistsEventRow(t *testing.T) {
	pub, client := newTestPublisher(t)
	ctx := context.Background()

	err := pub.Broadcast(ctx, "eval-evt", "turn_processed", map[string]any{"turn_id": "turn-1"})
	require.NoError(t, err)

	var count int
	err = client.Pool().QueryRow(ctx, `SELECT count(*) FROM events WHERE evaluation_id = $1`, "eval-evt").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func jsonEnvelope(evaluationID, updateType, fill string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"evaluation_id": evaluationID,
		"update_type":   updateType,
		"payload":       map[string]any{"fill": fill},
	})
}

func TestTruncateIfNeededPassesThroughSmallPayloads(t *testing.T) {
	body := []byte(`{"evaluation_id":"e1","update_type":"turn_processed"}`)
	out, err := truncateIfNeeded(body)
	require.NoError(t, err)
	assert.Equal(t, string(body), out)
}

func TestTruncateIfNeededShrinksOversizedPayloads(t *testing.T) {
	big := make([]byte, maxNotifyPayloadBytes+500)
	for i := range big {
		big[i] = 'x'
	}
	body, err := jsonEnvelope("e1", "turn_processed", string(big))
	require.NoError(t, err)
	out, err := truncateIfNeeded(body)
	require.NoError(t, err)
	assert.Less(t, len(out), len(body))
	assert.Contains(t, out, "truncated")
}
