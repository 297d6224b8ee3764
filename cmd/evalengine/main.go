// evalengine is the HTTP server binary for the conversation evaluation
// engine: it wires the database, LLM providers, background executor, and
// HTTP API together, then serves. Grounded on the teacher's
// cmd/tarsy/main.go wiring order (load config, connect database, build
// services, mount gin router, listen).
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/scotty-git/sidelinescott-sub003/pkg/cleaner"
	"github.com/scotty-git/sidelinescott-sub003/pkg/config"
	"github.com/scotty-git/sidelinescott-sub003/pkg/customer"
	"github.com/scotty-git/sidelinescott-sub003/pkg/database"
	"github.com/scotty-git/sidelinescott-sub003/pkg/evaluation"
	"github.com/scotty-git/sidelinescott-sub003/pkg/events"
	"github.com/scotty-git/sidelinescott-sub003/pkg/functions"
	"github.com/scotty-git/sidelinescott-sub003/pkg/httpapi"
	"github.com/scotty-git/sidelinescott-sub003/pkg/llm"
	"github.com/scotty-git/sidelinescott-sub003/pkg/queue"
	"github.com/scotty-git/sidelinescott-sub003/pkg/telemetry"
	"github.com/scotty-git/sidelinescott-sub003/pkg/template"
	"github.com/scotty-git/sidelinescott-sub003/pkg/version"
)

func main() {
	log.Printf("starting %s", version.Full())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: version.AppName,
	})
	if err != nil {
		log.Fatalf("failed to set up telemetry: %v", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	dbClient, err := database.NewClient(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	slog.Info("connected to database")

	stdDB, err := database.OpenStdlib(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("failed to open stdlib database connection for event publishing: %v", err)
	}
	defer stdDB.Close()

	providers := map[string]llm.Provider{}
	if cfg.AnthropicAPIKey != "" {
		providers["anthropic"] = llm.NewAnthropicProvider(cfg.AnthropicAPIKey)
	}
	if cfg.OpenAIAPIKey != "" {
		providers["openai"] = llm.NewOpenAIProvider(cfg.OpenAIAPIKey)
	}
	gateway := llm.NewGateway(providers, cfg.DefaultProvider, 8)

	renderer := template.NewRenderer()
	cleanerStage := cleaner.NewStage(renderer, gateway)
	masker := customer.NewMasker()

	catalog := functions.NewCatalog()
	registerCatalogFunctions(catalog)
	executor := functions.NewExecutor(catalog)

	bg := queue.NewExecutor(cfg.ExecutorWorkers, cfg.ExecutorQueueSize)
	bg.Start()
	defer bg.Stop()

	publisher := events.NewPublisher(stdDB)

	var redisClient goredis.UniversalClient
	if cfg.RedisEnabled {
		redisClient = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		slog.Info("connected to redis", "addr", cfg.RedisAddr)
	}
	redisCache := evaluation.NewRedisStateCache(redisClient, 0)

	cache := evaluation.NewStateCache(1000)
	manager := evaluation.NewManager(dbClient, cache, redisCache, renderer, gateway, cleanerStage, catalog, executor, masker, bg, publisher)

	server := httpapi.NewServer(manager)
	router := server.Router()

	slog.Info("listening", "addr", cfg.ServerAddr)
	if err := router.Run(cfg.ServerAddr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
