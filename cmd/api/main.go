package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/scopewise/estimation-backend/config"
	"github.com/scopewise/estimation-backend/internal/bootstrap"
	"github.com/scopewise/estimation-backend/internal/llm"
	"github.com/scopewise/estimation-backend/internal/pdftext"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := bootstrap.NewLogger(os.Stdout, cfg.App.Environment, cfg.App.LogLevel)
	slog.SetDefault(logger)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	rdb, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		// The cache is an optimisation; run without it.
		logger.Warn("synonym cache disabled", "error", err)
	} else if rdb != nil {
		defer rdb.Close()
		logger.Info("synonym cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.SynonymTTL)
	}

	completer := llm.New(llm.Options{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	})
	pdf := pdftext.NewClient(cfg.PDF.ExtractorURL, cfg.PDF.Timeout)

	handler, projects := bootstrap.NewEstimation(cfg, bootstrap.EstimationDeps{
		Store:  store,
		Redis:  rdb,
		LLM:    completer,
		PDF:    pdf,
		Logger: logger,
	})

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    cfg.App.ServiceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
		Store:          projects,
		Estimation:     handler,
	})

	logger.Info("estimation backend configured",
		"env", cfg.App.Environment,
		"store", cfg.Store.Driver,
		"model", cfg.LLM.Model,
		"chat_model", cfg.LLM.ChatModel,
		"hours_per_day", cfg.Estimation.HoursPerDay,
	)
	return bootstrap.Serve(bootstrap.NewServer(cfg.Server.Port, router), logger)
}
