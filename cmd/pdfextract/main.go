package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/scopewise/estimation-backend/config"
	"github.com/scopewise/estimation-backend/internal/api/http/middleware"
	"github.com/scopewise/estimation-backend/internal/bootstrap"
	"github.com/scopewise/estimation-backend/internal/pdftext"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadExtractor()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := bootstrap.NewLogger(os.Stdout, cfg.App.Environment, cfg.App.LogLevel).With("service", "pdfextract")
	slog.SetDefault(logger)
	bootstrap.SetGinMode(cfg.App.Environment)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(bootstrap.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.RequestIDMiddleware(logger))
	r.MaxMultipartMemory = cfg.PDF.MaxBytes

	pdftext.NewHandler(cfg.PDF.MaxBytes, logger).Register(r)

	return bootstrap.Serve(bootstrap.NewServer(cfg.PDF.Port, r), logger)
}
