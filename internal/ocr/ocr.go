// Package ocr extracts raw text from uploaded documents by shelling out to
// pdftotext (PDF) and tesseract (PNG/JPEG). When the tool is not installed
// the extractor degrades to a placeholder string instead of failing: OCR
// quality is the tool's problem, availability is ours.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	start := time.Now()
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("file not found: %s: %w", path, err)
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	var (
		text string
		err  error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		text, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		text, err = e.extractImage(ctx, path)
	default:
		e.logger.Error("ocr.unsupported_extension", "extension", ext)
		return "", fmt.Errorf("unsupported extension: %q", ext)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("ocr.extract.ok",
		"path", filepath.Base(path),
		"format", constants.MapExtToFormat(ext),
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	if _, err := e.runner.LookPath(e.cfg.Pdftotext); err != nil {
		return e.placeholder(path, e.cfg.Pdftotext), nil
	}
	// "-" sends the layout-preserving text to stdout.
	out, stderr, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, truncate(string(stderr), 512))
	}
	return string(out), nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	if _, err := e.runner.LookPath(e.cfg.Tesseract); err != nil {
		return e.placeholder(path, e.cfg.Tesseract), nil
	}
	out, stderr, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.TesseractLang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(stderr), 512))
	}
	return string(out), nil
}

// placeholder is the degraded-mode result when the extraction tool is not
// installed. Callers treat it as a normal (if useless) text result.
func (e *Extractor) placeholder(path, tool string) string {
	e.logger.Warn("ocr.degraded_mode", "missing_tool", tool, "file", filepath.Base(path))
	return fmt.Sprintf("[text extraction unavailable: %s not installed] %s", tool, filepath.Base(path))
}
