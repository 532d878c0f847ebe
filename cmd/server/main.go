package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocktrack/backend/internal/cache"
	"stocktrack/backend/internal/config"
	"stocktrack/backend/internal/httpapi"
	"stocktrack/backend/internal/insight"
	"stocktrack/backend/internal/logger"
	"stocktrack/backend/internal/service"
	"stocktrack/backend/internal/store"
	"stocktrack/backend/internal/store/file"
	"stocktrack/backend/internal/store/memory"
	pgstore "stocktrack/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New("stocktrack", cfg.LogLevel, cfg.IsDevelopment())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.ProductStore
	closers := make([]func() error, 0, 2)

	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with a fallback store")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Msg("store: postgres")
	case cfg.DBFilePath != "":
		fs, err := file.New(cfg.DBFilePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBFilePath).Msg("store file unreadable; refusing to start")
		}
		repo = fs
		log.Info().Str("path", cfg.DBFilePath).Msg("store: file")
	default:
		repo = memory.NewSeeded()
		log.Info().Msg("store: in-memory (seeded)")
	}

	var insightCache cache.InsightCache = cache.NewNoop()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop cache")
		} else {
			insightCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Msg("cache: redis")
		}
	}

	var insightSvc *insight.Service
	if cfg.InsightAPIURL != "" {
		generator := insight.NewHTTPGenerator(cfg.InsightAPIURL, cfg.InsightAPIKey)
		insightSvc = insight.New(generator, insightCache, time.Duration(cfg.InsightTTLSeconds)*time.Second, log)
		log.Info().Msg("insight: enabled")
	}

	svc := service.New(repo, log)
	api := httpapi.New(svc, insightSvc, cfg.AllowedOrigin, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("inventory backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}
