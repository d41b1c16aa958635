// rca-service runs the automated root-cause-analysis service: ingests
// Alertmanager-compatible webhooks, correlates alerts into incidents, and
// drives an LLM-directed investigation loop against Loki/Cortex backends.
// Grounded on the teacher's cmd/tarsy/main.go startup sequence, trimmed to
// this service's dependency set.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/rca-service/pkg/api"
	"github.com/codeready-toolchain/rca-service/pkg/cache"
	"github.com/codeready-toolchain/rca-service/pkg/config"
	"github.com/codeready-toolchain/rca-service/pkg/database"
	"github.com/codeready-toolchain/rca-service/pkg/llm"
	"github.com/codeready-toolchain/rca-service/pkg/queue"
	"github.com/codeready-toolchain/rca-service/pkg/services"
	"github.com/codeready-toolchain/rca-service/pkg/store"
	"github.com/codeready-toolchain/rca-service/pkg/version"
)

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	envPath := flag.String("env-file", getEnv("ENV_FILE", ".env"), "Path to a .env file")
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logLevel := slog.LevelInfo
	_ = logLevel.UnmarshalText([]byte(cfg.LogLevel))
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	log.Printf("starting %s", version.Full())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()
	log.Println("connected to PostgreSQL database, schema migrated")

	dataStore := store.New(dbClient.DB())

	var llmProvider llm.Provider
	switch cfg.LLMProvider {
	case "anthropic":
		llmProvider = llm.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel, time.Duration(cfg.ClaudeTimeoutSeconds)*time.Second)
	default:
		log.Fatalf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	queryCache := buildCache(cfg)

	svc := services.New(services.Deps{
		Store:                      dataStore,
		LLM:                        llmProvider,
		LogsBaseURL:                cfg.LokiURL,
		MetricsBaseURL:             cfg.CortexURL,
		LogsTimeout:                time.Duration(cfg.LokiTimeoutSeconds) * time.Second,
		MetricsTimeout:             time.Duration(cfg.CortexTimeoutSeconds) * time.Second,
		Cache:                      queryCache,
		CorrelationWindowSeconds:   cfg.CorrelationWindowSeconds,
		CorrelationScoreThreshold:  cfg.CorrelationScoreThreshold,
		SemanticCorrelationEnabled: cfg.SemanticCorrelationEnabled,
		RCAMaxIterations:           cfg.RCAMaxIterations,
		RCAExpertContext:           cfg.ExpertContext(),
		QueueConfig:                loadQueueConfig(),
	})

	svc.Pool.Start(ctx)
	defer svc.Pool.Stop()
	log.Println("RCA worker pool started")

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.NewServer(svc)
	httpSrv := &http.Server{
		Addr:    cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler: server.Router(),
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during HTTP shutdown: %v", err)
	}
}

// loadQueueConfig honors QUEUE_CONFIG_FILE for operators who'd rather tune
// worker-pool sizing from a mounted YAML file than redeploy with new
// environment variables; falls back to queue.DefaultConfig() when unset.
func loadQueueConfig() *queue.Config {
	path := os.Getenv("QUEUE_CONFIG_FILE")
	if path == "" {
		return queue.DefaultConfig()
	}
	cfg, err := queue.LoadConfigFromYAML(path)
	if err != nil {
		log.Fatalf("failed to load queue config from %s: %v", path, err)
	}
	return cfg
}

// buildCache wires the cache backend named by cfg.QueryCacheBackend (spec
// §6.5): "redis" for a shared cache.RedisStore, "memory" (default) for the
// in-process cache.Cache.
func buildCache(cfg *config.Config) cache.Store {
	if cfg.QueryCacheBackend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return cache.NewRedisStore(client, 300*time.Second)
	}
	return cache.New(1000, 300*time.Second)
}
