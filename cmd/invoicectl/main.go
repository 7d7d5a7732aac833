// invoicectl is the command line companion to invoiced: one-shot extraction
// and history export without running the daemon.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/batch"
	"github.com/joseph-ayodele/invoice-extractor/internal/cache"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/resilience"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:           "invoicectl",
		Short:         "Extract structured data from invoice documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExtractCmd(logger), newBatchCmd(logger), newExportCmd(logger))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newExtractCmd(logger *slog.Logger) *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract one invoice and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := common.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			var store extract.Cache
			if !noCache {
				s := cache.NewSQLiteStore(cfg.Store.DBPath, cfg.Cache.TTL, cfg.Cache.OpTimeout, logger)
				defer func() { _ = s.Close() }()
				store = s
			}

			orchestrator := extract.NewOrchestrator(
				store,
				ocr.NewExtractor(ocr.Config{
					Pdftotext:     cfg.OCR.Pdftotext,
					Tesseract:     cfg.OCR.Tesseract,
					TesseractLang: cfg.OCR.TesseractLang,
				}, logger),
				gemini.NewClient(gemini.Config{
					APIKey:  cfg.LLM.APIKey,
					BaseURL: cfg.LLM.BaseURL,
					Model:   cfg.LLM.Model,
					Timeout: cfg.LLM.Timeout,
				}, logger),
				resilience.NewBreaker(cfg.Resil.FailureThreshold, cfg.Resil.Cooldown, logger),
				resilience.NewRetrier(cfg.Resil.MaxAttempts, cfg.Resil.BaseDelay, cfg.Resil.MaxDelay, logger),
				nil, // one-shot runs do not touch the history store
				cfg.Upload,
				logger,
			)

			filename := filepath.Base(path)
			inv, err := orchestrator.Extract(cmd.Context(), extract.Upload{
				Filename:    filename,
				ContentType: constants.ContentTypeForExt(filepath.Ext(filename)),
				Data:        data,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(inv)
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the result cache")
	return cmd
}

func newBatchCmd(logger *slog.Logger) *cobra.Command {
	var (
		workers int
		out     string
	)

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Extract every invoice in a directory and export the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := common.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			db, err := repository.Open(ctx, cfg.Store.DBPath, logger)
			if err != nil {
				return err
			}
			defer repository.Close(db, logger)
			invoices := repository.NewInvoiceRepository(db, logger)

			store := cache.NewSQLiteStore(cfg.Store.DBPath, cfg.Cache.TTL, cfg.Cache.OpTimeout, logger)
			defer func() { _ = store.Close() }()

			orchestrator := extract.NewOrchestrator(
				store,
				ocr.NewExtractor(ocr.Config{
					Pdftotext:     cfg.OCR.Pdftotext,
					Tesseract:     cfg.OCR.Tesseract,
					TesseractLang: cfg.OCR.TesseractLang,
				}, logger),
				gemini.NewClient(gemini.Config{
					APIKey:  cfg.LLM.APIKey,
					BaseURL: cfg.LLM.BaseURL,
					Model:   cfg.LLM.Model,
					Timeout: cfg.LLM.Timeout,
				}, logger),
				resilience.NewBreaker(cfg.Resil.FailureThreshold, cfg.Resil.Cooldown, logger),
				resilience.NewRetrier(cfg.Resil.MaxAttempts, cfg.Resil.BaseDelay, cfg.Resil.MaxDelay, logger),
				invoices,
				cfg.Upload,
				logger,
			)

			dir := args[0]
			if out == "" {
				out = filepath.Join(filepath.Dir(dir), "invoices.xlsx")
			}

			results, stats, err := batch.NewRunner(orchestrator, workers, logger).Run(ctx, dir, true)
			if err != nil {
				return err
			}
			for _, res := range results {
				if res.Err != "" {
					fmt.Fprintf(os.Stderr, "failed: %s: %s\n", res.Path, res.Err)
				}
			}

			svc := export.NewService(invoices, logger)
			data, err := svc.ExportXLSX(ctx, nil, nil)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			fmt.Printf("Batch complete: %d matched, %d succeeded, %d failed\n",
				stats.Matched, stats.Succeeded, stats.Failed)
			fmt.Printf("Output: %s\n", out)
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 2, "concurrent extractions")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output XLSX path (defaults next to the directory)")
	return cmd
}

func newExportCmd(logger *slog.Logger) *cobra.Command {
	var fromStr, toStr, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the extraction history to an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := parseDate(fromStr, "--from")
			if err != nil {
				return err
			}
			to, err := parseDate(toStr, "--to")
			if err != nil {
				return err
			}

			cfg := common.LoadConfig()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			db, err := repository.Open(ctx, cfg.Store.DBPath, logger)
			if err != nil {
				return err
			}
			defer repository.Close(db, logger)

			svc := export.NewService(repository.NewInvoiceRepository(db, logger), logger)
			data, err := svc.ExportXLSX(ctx, from, to)
			if err != nil {
				return err
			}

			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("Exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&fromStr, "from", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "end date YYYY-MM-DD")
	cmd.Flags().StringVarP(&out, "out", "o", "invoices.xlsx", "output file path")
	return cmd
}

func parseDate(s, flag string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q, use YYYY-MM-DD", flag, s)
	}
	return &t, nil
}
