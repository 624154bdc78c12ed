package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/strata-blog-api/internal/api"
	"github.com/strata-blog-api/internal/auth"
	"github.com/strata-blog-api/internal/cache"
	"github.com/strata-blog-api/internal/config"
	"github.com/strata-blog-api/internal/database"
	"github.com/strata-blog-api/internal/metrics"
	"github.com/strata-blog-api/internal/repository"
	"github.com/strata-blog-api/internal/service"
	"github.com/strata-blog-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("Starting blog API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Metrics
	m := metrics.New()
	m.RegisterDBStats(db.Stats)

	// Optional detail cache
	var postCache cache.PostCache = cache.NopCache{}
	if cfg.Cache.CacheEnabled() {
		rdb, err := cache.NewRedisClient(cfg.Cache, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer rdb.Close()
		postCache = cache.NewRedisPostCache(rdb, cfg.Cache.TTL, log)
	} else {
		log.Info().Msg("REDIS_ADDR not set, post cache disabled")
	}

	// Initialize repositories
	repos := repository.New(db, m, log)

	// Initialize services
	services := service.NewServices(service.Deps{
		Repos:   repos,
		Guard:   auth.NewGuard(),
		Cache:   postCache,
		Metrics: m,
	}, log)

	// Initialize router
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(services, api.Deps{
		Tokens:   auth.NewJWTParser(cfg.Auth.JWTSecret),
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		Health:   db,
	}, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
