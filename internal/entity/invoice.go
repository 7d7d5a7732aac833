package entity

import (
	"time"

	"github.com/google/uuid"
)

// LineItem is a single invoice line. No arithmetic relation between
// total_price and quantity*unit_price is enforced; the extractor reports
// what the document says.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// InvoiceData is the validated shape we want from the LLM.
// Dates are ISO-8601 strings (YYYY-MM-DD); money fields are plain numbers.
type InvoiceData struct {
	InvoiceNumber   string     `json:"invoice_number"`
	InvoiceDate     string     `json:"invoice_date,omitempty"`
	DueDate         string     `json:"due_date,omitempty"`
	VendorName      string     `json:"vendor_name"`
	VendorAddress   string     `json:"vendor_address,omitempty"`
	CustomerName    string     `json:"customer_name,omitempty"`
	CustomerAddress string     `json:"customer_address,omitempty"`
	Subtotal        float64    `json:"subtotal"`
	Tax             float64    `json:"tax"`
	Total           float64    `json:"total"`
	Currency        string     `json:"currency"`
	Items           []LineItem `json:"items"`
}

// ExtractionRecord is one row of the extraction history.
type ExtractionRecord struct {
	ID          uuid.UUID
	Fingerprint string
	Filename    string
	Invoice     InvoiceData
	CreatedAt   time.Time
}
