package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/api"
	"github.com/cxlinux-ai/supportbot/internal/config"
	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/cxlinux-ai/supportbot/internal/repository/memstore"
	"github.com/cxlinux-ai/supportbot/internal/repository/postgres"
	"github.com/cxlinux-ai/supportbot/internal/repository/redis"
	"github.com/cxlinux-ai/supportbot/internal/repository/sqlite"
	"github.com/joho/godotenv"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Logging)

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Mode).
		Msg("Starting support agent API server")

	deps, cleanup, err := buildStores(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer cleanup()

	// Initialize router
	router, mem := api.NewRouter(cfg, deps)
	defer mem.Close()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func setupLogger(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if level, err := zerolog.ParseLevel(cfg.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		writer, err := rotatelogs.New(
			cfg.File+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.File),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(7*24*time.Hour),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open log file")
		}
		out = io.MultiWriter(os.Stderr, writer)
	}

	if cfg.Format == "console" || os.Getenv("ENV") != "production" {
		out = zerolog.ConsoleWriter{Out: out}
	}

	log.Logger = log.Output(out)
}

// buildStores picks the backing stores for the configured storage mode.
// Postgres mode keeps sessions in Postgres and counters plus cached
// answers in Redis, falling back to Postgres counters and an in-process
// cache when Redis is unreachable; sqlite mode puts all three in one
// embedded file; memory mode holds everything in process.
func buildStores(cfg *config.Config) (api.Deps, func(), error) {
	noop := func() {}

	switch cfg.Storage.Mode {
	case "postgres":
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return api.Deps{}, noop, fmt.Errorf("postgres: %w", err)
		}

		var (
			usage domain.UsageStore
			cache domain.ResponseCache
		)
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using Postgres counters and in-process answer cache")
			usage = postgres.NewUsageRepository(db.Pool)
			cache = memstore.NewResponseCache(cfg.Cache.TTL)
		} else {
			usage = redis.NewUsageStore(redisClient)
			cache = redis.NewResponseCache(redisClient, cfg.Cache.TTL)
		}

		kbCollection, mongoClose, err := connectMongo(cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("Mongo unavailable, knowledge base search disabled")
		}

		deps := api.Deps{
			Conversations: postgres.NewConversationRepository(db.Pool),
			Usage:         usage,
			Cache:         cache,
			KBCollection:  kbCollection,
			Pinger:        db,
		}
		cleanup := func() {
			mongoClose()
			if redisClient != nil {
				redisClient.Close()
			}
			db.Close()
		}
		return deps, cleanup, nil

	case "sqlite":
		store, err := sqlite.NewStore(cfg.Storage.SQLitePath, cfg.Cache.TTL)
		if err != nil {
			return api.Deps{}, noop, fmt.Errorf("sqlite: %w", err)
		}

		deps := api.Deps{
			Conversations: store.Conversations(),
			Usage:         store.Usage(),
			Cache:         store.Cache(),
		}
		return deps, func() { store.Close() }, nil

	case "memory":
		deps := api.Deps{
			Conversations: memstore.NewConversationStore(),
			Usage:         memstore.NewUsageStore(),
			Cache:         memstore.NewResponseCache(cfg.Cache.TTL),
		}
		return deps, noop, nil

	default:
		return api.Deps{}, noop, fmt.Errorf("unknown storage mode %q", cfg.Storage.Mode)
	}
}

func connectMongo(cfg config.MongoConfig) (*mongo.Collection, func(), error) {
	noop := func() {}
	if cfg.URI == "" {
		return nil, noop, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, noop, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, noop, err
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)
	disconnect := func() {
		_ = client.Disconnect(context.Background())
	}
	return collection, disconnect, nil
}
