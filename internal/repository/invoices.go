package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

type InvoiceRepository interface {
	Save(ctx context.Context, rec *entity.ExtractionRecord) error
	ListBetween(ctx context.Context, from, to *time.Time) ([]*entity.ExtractionRecord, error)
}

type invoiceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewInvoiceRepository(db *sql.DB, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Save(ctx context.Context, rec *entity.ExtractionRecord) error {
	payload, err := json.Marshal(rec.Invoice)
	if err != nil {
		return fmt.Errorf("encode invoice: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO extractions (id, fingerprint, filename, invoice, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Fingerprint, rec.Filename, string(payload), rec.CreatedAt.Unix(),
	)
	if err != nil {
		r.logger.Error("repository.save_failed", "fingerprint", rec.Fingerprint, "error", err)
		return fmt.Errorf("insert extraction: %w", err)
	}
	return nil
}

func (r *invoiceRepository) ListBetween(ctx context.Context, from, to *time.Time) ([]*entity.ExtractionRecord, error) {
	q := `SELECT id, fingerprint, filename, invoice, created_at FROM extractions WHERE 1=1`
	args := []any{}
	if from != nil {
		q += ` AND created_at >= ?`
		args = append(args, from.Unix())
	}
	if to != nil {
		q += ` AND created_at <= ?`
		args = append(args, to.Unix())
	}
	q += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		r.logger.Error("repository.list_failed", "error", err)
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()

	var result []*entity.ExtractionRecord
	for rows.Next() {
		var (
			id      string
			rec     entity.ExtractionRecord
			payload string
			created int64
		)
		if err := rows.Scan(&id, &rec.Fingerprint, &rec.Filename, &payload, &created); err != nil {
			return nil, fmt.Errorf("scan extraction: %w", err)
		}
		rec.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse extraction id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(payload), &rec.Invoice); err != nil {
			return nil, fmt.Errorf("decode invoice for %s: %w", id, err)
		}
		rec.CreatedAt = time.Unix(created, 0).UTC()
		result = append(result, &rec)
	}
	return result, rows.Err()
}
