package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/scotty-git/sidelinescott-sub003/pkg/models"
)

// newTestClient starts a throwaway PostgreSQL container, applies the
// embedded migrations against it, and returns a connected Client.
func newTestClient(t *testing.T) *Client {
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

	cfg := Config{
		Host:         host,
		Port:         port.Int(),
		User:         "test",
		Password:     "test",
		Database:     "test",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}

	client, err := NewClient(ctx, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func TestDatabaseClient_ConnectionPool(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	health, err := Health(ctx, client.Pool())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxConns, int32(0))
}

func TestConversationTurnRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	conv := models.Conversation{ID: "conv-1", CreatedAt: time.Now().UTC()}
	require.NoError(t, client.CreateConversation(ctx, conv))

	turns := []models.Turn{
		{ID: "turn-1", ConversationID: conv.ID, TurnSequence: 0, Speaker: models.SpeakerUser, RawText: "hi"},
		{ID: "turn-2", ConversationID: conv.ID, TurnSequence: 1, Speaker: models.SpeakerAssistant, RawText: "hello"},
	}
	require.NoError(t, client.CreateTurns(ctx, turns))

	fetched, err := client.TurnsByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, "turn-1", fetched[0].ID)
	assert.Equal(t, "turn-2", fetched[1].ID)
}

func TestCleanedTurnWriteOnceUniqueness(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	conv := models.Conversation{ID: "conv-2", CreatedAt: time.Now().UTC()}
	require.NoError(t, client.CreateConversation(ctx, conv))
	require.NoError(t, client.CreateTurns(ctx, []models.Turn{
		{ID: "turn-3", ConversationID: conv.ID, TurnSequence: 0, Speaker: models.SpeakerUser, RawText: "hi"},
	}))
	tpl := models.PromptTemplate{ID: "tpl-1", Name: "cleaner", TemplateText: "{{.raw_text}}", CreatedAt: time.Now().UTC()}
	require.NoError(t, client.CreatePromptTemplate(ctx, tpl))
	eval := models.Evaluation{
		ID: "eval-1", ConversationID: conv.ID, PromptTemplateID: tpl.ID, FunctionPromptTemplateID: tpl.ID,
		Status: models.EvaluationActive, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, client.CreateEvaluation(ctx, eval))

	ct := models.CleanedTurn{
		ID: "ct-1", EvaluationID: eval.ID, TurnID: "turn-3", TurnSequence: 0,
		Speaker: models.SpeakerUser, CleanedText: "hi", ConfidenceScore: models.ConfidenceHigh,
		CleaningLevel: models.CleaningNone, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, client.CreateCleanedTurn(ctx, ct))
	// Second insert for the same (evaluation, turn) is a silent no-op (I2).
	require.NoError(t, client.CreateCleanedTurn(ctx, ct))

	all, err := client.CleanedTurnsByEvaluation(ctx, eval.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test", Database: "test",
				SSLMode: "disable", MaxOpenConns: 10, MaxIdleConns: 5,
			},
		},
		{
			name: "missing password",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "", Database: "test",
				MaxOpenConns: 10, MaxIdleConns: 5,
			},
			wantErr: true,
		},
		{
			name: "idle conns exceed max conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test", Database: "test",
				MaxOpenConns: 5, MaxIdleConns: 10,
			},
			wantErr: true,
		},
		{
			name: "zero max open conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test", Database: "test",
				MaxOpenConns: 0, MaxIdleConns: 0,
			},
			wantErr: true,
		},
		{
			name: "negative idle conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test", Database: "test",
				MaxOpenConns: 10, MaxIdleConns: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
