package extract

import (
	"context"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// TextExtractor turns a document on disk into raw text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Cache stores finished extractions keyed by content fingerprint. Both
// methods are best-effort: a broken backend reads as a miss and a failed
// write reports false, neither fails the request.
type Cache interface {
	Get(ctx context.Context, fingerprint string) (*entity.InvoiceData, bool)
	Set(ctx context.Context, fingerprint string, rec *entity.InvoiceData) bool
}

// History persists completed extractions for later listing and export.
type History interface {
	Save(ctx context.Context, rec *entity.ExtractionRecord) error
}
