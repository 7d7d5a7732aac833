// Package extract runs the full invoice extraction flow: validate the
// upload, fingerprint it, consult the result cache, OCR the document, call
// the model behind the circuit breaker and retrier, validate the model's
// answer, and record the result.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/fingerprint"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/resilience"
)

// Upload is one document handed to the orchestrator, already read into
// memory by the transport layer.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Orchestrator struct {
	cache     Cache
	ocr       TextExtractor
	completer llm.Completer
	breaker   *resilience.Breaker
	retrier   *resilience.Retrier
	history   History
	logger    *slog.Logger

	maxBytes int64
	tmpDir   string
}

// NewOrchestrator wires the extraction flow together. history may be nil
// when no persistence is wanted (the CLI one-shot path).
func NewOrchestrator(
	cache Cache,
	ocr TextExtractor,
	completer llm.Completer,
	breaker *resilience.Breaker,
	retrier *resilience.Retrier,
	history History,
	upload common.UploadConfig,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	maxMB := upload.MaxFileSizeMB
	if maxMB <= 0 {
		maxMB = constants.MaxFileSizeMBDefault
	}
	return &Orchestrator{
		cache:     cache,
		ocr:       ocr,
		completer: completer,
		breaker:   breaker,
		retrier:   retrier,
		history:   history,
		logger:    logger,
		maxBytes:  maxMB << 20,
		tmpDir:    upload.TmpDir,
	}
}

// Extract runs the whole flow for one upload. Every error it returns is a
// *common.AppError; the transport layer maps codes to status lines.
func (o *Orchestrator) Extract(ctx context.Context, up Upload) (*entity.InvoiceData, error) {
	start := time.Now()
	reqID := common.RequestIDFromContext(ctx)

	ext, err := o.validate(up)
	if err != nil {
		return nil, err
	}

	fp, err := fingerprint.Compute(up.Data)
	if err != nil {
		return nil, err
	}

	o.logger.Info("extract.start",
		"req_id", reqID,
		"filename", up.Filename,
		"size_bytes", len(up.Data),
		"fingerprint", fp[:8],
	)

	if o.cache != nil {
		if rec, ok := o.cache.Get(ctx, fp); ok {
			o.logger.Info("extract.cache_hit",
				"req_id", reqID,
				"fingerprint", fp[:8],
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return rec, nil
		}
	}

	path, cleanup, err := o.spool(up.Data, ext)
	if err != nil {
		return nil, common.NewAppError(common.CodeInternal, "failed to stage upload", err)
	}
	defer cleanup()

	text, err := o.ocr.Extract(ctx, path)
	if err != nil {
		return nil, common.NewAppError(common.CodeOCRFailed, "text extraction failed", err)
	}

	raw, err := o.complete(ctx, llm.BuildExtractionPrompt(text, nil))
	if err != nil {
		return nil, err
	}

	inv, err := llm.ParseInvoice(raw, o.logger)
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		o.cache.Set(ctx, fp, inv)
	}
	o.record(ctx, fp, up.Filename, inv)

	o.logger.Info("extract.ok",
		"req_id", reqID,
		"fingerprint", fp[:8],
		"invoice_number", inv.InvoiceNumber,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return inv, nil
}

// validate rejects bad uploads before any hashing, OCR, or AI work. It
// returns the extension to stage the temp file with.
func (o *Orchestrator) validate(up Upload) (string, error) {
	if len(up.Data) == 0 {
		return "", common.NewAppError(common.CodeInvalidInput, "empty file", nil)
	}
	if int64(len(up.Data)) > o.maxBytes {
		return "", common.NewAppErrorDetail(common.CodeInvalidInput, "file too large",
			fmt.Sprintf("file is %d bytes, limit is %d MB", len(up.Data), o.maxBytes>>20), nil)
	}

	ext := constants.NormalizeExt(filepath.Ext(up.Filename))
	if _, ok := constants.AllowedExtensions[ext]; ok {
		return ext, nil
	}
	// Extension is unusable; fall back to the declared content type.
	if ct := constants.ExtForContentType(up.ContentType); ct != "" {
		return ct, nil
	}
	return "", common.NewAppErrorDetail(common.CodeInvalidInput, "unsupported file type",
		fmt.Sprintf("file %q with content type %q; supported types are PDF, PNG, and JPEG", up.Filename, up.ContentType), nil)
}

// spool writes the upload to a temp file for the OCR tools. The returned
// cleanup always runs; a failed removal is logged and otherwise ignored.
func (o *Orchestrator) spool(data []byte, ext string) (string, func(), error) {
	f, err := os.CreateTemp(o.tmpDir, "invoice-*."+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			o.logger.Warn("extract.tmp_cleanup_failed", "path", path, "error", err)
		}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return path, cleanup, nil
}

// complete calls the model behind the breaker, retrying transient failures
// inside a single breaker decision.
func (o *Orchestrator) complete(ctx context.Context, prompt string) (string, error) {
	var raw string
	err := o.breaker.Call(ctx, func(ctx context.Context) error {
		return o.retrier.Do(ctx, func(ctx context.Context) error {
			out, err := o.completer.Complete(ctx, prompt)
			if err != nil {
				return err
			}
			raw = out
			return nil
		})
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "", common.NewAppError(common.CodeCircuitOpen, "AI service is temporarily unavailable", err)
	}
	if err != nil {
		return "", common.NewAppError(common.CodeAIServiceError, "AI completion failed", err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", common.NewAppError(common.CodeEmptyAIResponse, "AI service returned an empty response", nil)
	}
	return raw, nil
}

// record appends the extraction to the history store, best effort.
func (o *Orchestrator) record(ctx context.Context, fp, filename string, inv *entity.InvoiceData) {
	if o.history == nil {
		return
	}
	rec := &entity.ExtractionRecord{
		ID:          uuid.New(),
		Fingerprint: fp,
		Filename:    filename,
		Invoice:     *inv,
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.history.Save(ctx, rec); err != nil {
		o.logger.Error("extract.history_save_failed", "fingerprint", fp[:8], "error", err)
	}
}
