package llm

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. Money fields are numbers: a non-numeric subtotal/tax/total
// must fail validation, never silently coerce to zero.
func BuildInvoiceJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{"type": "string"},
			"quantity":    map[string]any{"type": "number"},
			"unit_price":  map[string]any{"type": "number"},
			"total_price": map[string]any{"type": "number"},
		},
		"required": []string{"description", "quantity", "unit_price", "total_price"},
	}

	props := map[string]any{
		"invoice_number":   map[string]any{"type": "string", "minLength": 1},
		"invoice_date":     datePropLenient(),
		"due_date":         datePropLenient(),
		"vendor_name":      map[string]any{"type": "string", "minLength": 1},
		"vendor_address":   map[string]any{"type": "string"},
		"customer_name":    map[string]any{"type": "string"},
		"customer_address": map[string]any{"type": "string"},
		"subtotal":         map[string]any{"type": "number"},
		"tax":              map[string]any{"type": "number"},
		"total":            map[string]any{"type": "number"},
		"currency":         map[string]any{"type": "string", "minLength": 1},
		"items": map[string]any{
			"type":  "array",
			"items": item,
		},
	}

	required := []string{"invoice_number", "vendor_name", "subtotal", "tax", "total"}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// datePropLenient accepts anything date-shaped the model emits; strict
// date parsing is left to consumers that need real time.Time values.
func datePropLenient() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^\d{4}-\d{2}-\d{2}$`,
	}
}
