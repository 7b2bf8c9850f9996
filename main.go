package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/asperguide/catfeeder-backend/pkg/cache"
	"github.com/asperguide/catfeeder-backend/pkg/config"
	"github.com/asperguide/catfeeder-backend/pkg/database"
	"github.com/asperguide/catfeeder-backend/pkg/handlers"
	"github.com/asperguide/catfeeder-backend/pkg/logging"
	"github.com/asperguide/catfeeder-backend/pkg/sql"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("dsn", logging.SanitizeDSN(cfg.Database.DSN())),
		zap.String("redis", cfg.Redis.Addr()),
	)

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)),
		)
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis",
			zap.String("error", logging.SanitizeError(err)),
		)
	}

	// Without Redis the cache falls back to an in-process store rather
	// than failing startup.
	var queryCache sql.Cache
	if redisClient != nil {
		queryCache = cache.NewRedis(redisClient, cfg.Cache.TTLSeconds, logger)
		logger.Info("Redis query-result cache enabled", zap.String("prefix", cfg.Cache.KeyPrefix))
	} else {
		queryCache = cache.NewMemory(cfg.Cache.TTLSeconds)
		logger.Info("No Redis configured, using in-process query-result cache")
	}

	boilerplate := sql.NewQueryBoilerplates(db, logger)
	orchestrator := sql.NewCacheOrchestrator(boilerplate, queryCache, cfg.Cache.KeyPrefix, logger)

	mux := http.NewServeMux()
	healthHandler := handlers.NewHealthHandler(cfg, db, queryCache != nil, logger)
	healthHandler.RegisterRoutes(mux)
	tablesHandler := handlers.NewTablesHandler(orchestrator, logger)
	tablesHandler.RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting catfeeder-backend",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
	)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
