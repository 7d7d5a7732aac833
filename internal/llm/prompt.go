package llm

import (
	"fmt"
	"strings"
)

// BuildExtractionPrompt composes the invoice-extraction instruction for the
// model. Pure string concatenation: the OCR text is embedded verbatim and,
// when table hints are present, an enumerated "Table N:" section is
// appended per hint. No validation happens here; garbage in, garbage in
// the prompt.
func BuildExtractionPrompt(invoiceText string, tables []string) string {
	var b strings.Builder
	b.WriteString("You are an expert at extracting structured data from invoice text.\n")
	b.WriteString("Please extract the following information from the given invoice text and return it in JSON format:\n\n")
	b.WriteString("- invoice_number: The invoice or document number\n")
	b.WriteString("- invoice_date: Date of the invoice (format: YYYY-MM-DD)\n")
	b.WriteString("- due_date: Payment due date (format: YYYY-MM-DD)\n")
	b.WriteString("- vendor_name: Name of the vendor/supplier\n")
	b.WriteString("- vendor_address: Vendor's address\n")
	b.WriteString("- customer_name: Customer name\n")
	b.WriteString("- customer_address: Customer address\n")
	b.WriteString("- subtotal: Subtotal amount (numeric)\n")
	b.WriteString("- tax: Tax amount (numeric)\n")
	b.WriteString("- total: Total amount (numeric)\n")
	b.WriteString("- currency: Currency code (e.g., USD, EUR)\n")
	b.WriteString("- items: Array of line items with description, quantity, unit_price, total_price\n\n")
	b.WriteString("If any field is not found or unclear, return null for that field.\n\n")
	b.WriteString("Invoice Text:\n")
	b.WriteString(invoiceText)
	b.WriteString("\n")

	if len(tables) > 0 {
		b.WriteString("\nTable Data:\n")
		for i, table := range tables {
			fmt.Fprintf(&b, "Table %d:\n%s\n", i+1, table)
		}
	}

	b.WriteString("\nResponse (valid JSON only):\n")
	return b.String()
}
