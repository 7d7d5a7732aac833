package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

type fakeRepo struct {
	recs []*entity.ExtractionRecord

	from, to *time.Time
}

func (f *fakeRepo) Save(context.Context, *entity.ExtractionRecord) error { return nil }

func (f *fakeRepo) ListBetween(_ context.Context, from, to *time.Time) ([]*entity.ExtractionRecord, error) {
	f.from, f.to = from, to
	return f.recs, nil
}

func TestExportXLSX(t *testing.T) {
	repo := &fakeRepo{recs: []*entity.ExtractionRecord{
		{
			ID:        uuid.New(),
			Filename:  "invoice.pdf",
			CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			Invoice: entity.InvoiceData{
				InvoiceNumber: "INV-1",
				VendorName:    "Acme",
				Subtotal:      10,
				Tax:           1,
				Total:         11,
				Currency:      "USD",
				Items:         []entity.LineItem{{Description: "Widget", Quantity: 2, UnitPrice: 5, TotalPrice: 10}},
			},
		},
	}}
	svc := NewService(repo, nil)

	out, err := svc.ExportXLSX(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = wb.Close() }()

	if got, _ := wb.GetCellValue("Invoices", "B1"); got != "Invoice Number" {
		t.Errorf("B1 = %q", got)
	}
	if got, _ := wb.GetCellValue("Invoices", "B2"); got != "INV-1" {
		t.Errorf("B2 = %q", got)
	}
	if got, _ := wb.GetCellValue("Invoices", "I2"); got != "11" {
		t.Errorf("I2 = %q", got)
	}
	if got, _ := wb.GetCellValue("Invoices", "L2"); got != "invoice.pdf" {
		t.Errorf("L2 = %q", got)
	}
}

func TestExportXLSXWindowDefaults(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)

	from := time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC)
	if _, err := svc.ExportXLSX(context.Background(), &from, nil); err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	if repo.from == nil || !repo.from.Equal(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v, want midnight UTC", repo.from)
	}
	if repo.to == nil {
		t.Error("to not defaulted to today")
	}
}
