// invoiced is the invoice extraction HTTP daemon.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/cache"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/resilience"
	"github.com/joseph-ayodele/invoice-extractor/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// History store
	db, err := repository.Open(ctx, cfg.Store.DBPath, logger)
	if err != nil {
		logger.Error("failed to open history database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)
	invoices := repository.NewInvoiceRepository(db, logger)

	// Result cache
	var store cache.Store
	switch cfg.Cache.Backend {
	case "postgres":
		store = cache.NewPostgresStore(cfg.Cache.DSN, cfg.Cache.TTL, cfg.Cache.OpTimeout, logger)
	default:
		store = cache.NewSQLiteStore(cfg.Store.DBPath, cfg.Cache.TTL, cfg.Cache.OpTimeout, logger)
	}
	defer func() { _ = store.Close() }()

	completer := gemini.NewClient(gemini.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	breaker := resilience.NewBreaker(cfg.Resil.FailureThreshold, cfg.Resil.Cooldown, logger)
	retrier := resilience.NewRetrier(cfg.Resil.MaxAttempts, cfg.Resil.BaseDelay, cfg.Resil.MaxDelay, logger)

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
	}, logger)

	orchestrator := extract.NewOrchestrator(
		store, extractor, completer, breaker, retrier, invoices,
		cfg.Upload, logger,
	)
	exporter := export.NewService(invoices, logger)

	srv := server.New(cfg.Server.HTTPAddr, orchestrator, exporter, store, breaker, cfg.Upload.MaxFileSizeMB, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
