// Package main provides the answer API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mueller-baumaschinen/answer-engine/internal/config"
	"github.com/mueller-baumaschinen/answer-engine/internal/faqindex"
	"github.com/mueller-baumaschinen/answer-engine/internal/llm"
	"github.com/mueller-baumaschinen/answer-engine/internal/observability"
	"github.com/mueller-baumaschinen/answer-engine/internal/resolver"
	"github.com/mueller-baumaschinen/answer-engine/internal/store"
)

func main() {
	// Local development convenience; the file is absent in production.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "answer-engine",
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Str("cache", cfg.Cache.Driver).
		Msg("Starting answer engine")

	authoritative, closeAuth, err := buildAuthoritative(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open authoritative store")
	}
	defer closeAuth()

	cache, closeCache := buildCache(cfg, logger)
	defer closeCache()

	coord := store.NewCoordinator(logger, authoritative, cache)

	generator := buildGenerator(cfg, logger)

	res := resolver.New(logger, resolver.Options{
		Chat: cfg.Chat,
		Index: faqindex.Options{
			MaxTokenDistance: cfg.Chat.MaxTokenDistance,
			MinTokenLength:   faqindex.DefaultOptions().MinTokenLength,
		},
	}, coord, generator)

	router := NewRouter(logger, cfg, coord, res, generator != nil)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	coord.Wait()
	logger.Info().Msg("Server stopped")
}

// buildAuthoritative opens the durable tier selected by the store driver.
func buildAuthoritative(cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "file":
		s, err := store.NewFileStore(cfg.Store.File.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		s, err := store.NewSQLStore(store.SQLConfig{
			Driver:          cfg.Store.Driver,
			DSN:             cfg.Store.SQL.DSN,
			MaxOpenConns:    cfg.Store.SQL.MaxOpenConns,
			MaxIdleConns:    cfg.Store.SQL.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.SQL.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}

// buildCache opens the cache tier. A failed Redis connection downgrades to
// no cache instead of blocking startup.
func buildCache(cfg *config.Config, logger zerolog.Logger) (store.Store, func()) {
	switch cfg.Cache.Driver {
	case "memory":
		return store.NewMemoryStore(), func() {}
	case "redis":
		s, err := store.NewRedisStore(store.RedisStoreConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, running without cache tier")
			return nil, func() {}
		}
		return s, func() { s.Close() }
	default:
		return nil, func() {}
	}
}

// buildGenerator creates the LLM fallback, or nil when no key is configured.
func buildGenerator(cfg *config.Config, logger zerolog.Logger) llm.Generator {
	if cfg.LLM.APIKey == "" {
		logger.Warn().Msg("No LLM API key configured, fallback answers disabled")
		return nil
	}

	gen, err := llm.NewOpenAIGenerator(llm.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Persona:     cfg.LLM.Persona,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("LLM setup failed, fallback answers disabled")
		return nil
	}
	return gen
}
