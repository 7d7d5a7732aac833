package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// fencedBlock matches a markdown code fence, optionally tagged "json",
// capturing the innermost content.
var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// optionalFields may be dropped when the model returns null or "" for
// them; required fields are left alone so validation reports them.
var optionalFields = []string{
	"invoice_date", "due_date",
	"vendor_address", "customer_name", "customer_address",
	"currency", "items",
}

// knownFields is the schema key set; anything else the model invents is
// stripped before strict validation.
var knownFields = map[string]struct{}{
	"invoice_number": {}, "invoice_date": {}, "due_date": {},
	"vendor_name": {}, "vendor_address": {},
	"customer_name": {}, "customer_address": {},
	"subtotal": {}, "tax": {}, "total": {},
	"currency": {}, "items": {},
}

// CleanResponse trims the raw completion and unwraps a fenced code block
// when one is present. Models frequently wrap JSON in ``` fences despite
// instructions.
func CleanResponse(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[1])
	}
	return cleaned
}

// ParseInvoice normalizes a raw completion into a validated InvoiceData:
// fence cleanup, JSON decode, sanitize, schema validation, struct decode.
// Failures carry MALFORMED_RESPONSE or SCHEMA_VALIDATION_FAILED with the
// underlying diagnostic; there is no partial-success mode.
func ParseInvoice(raw string, logger *slog.Logger) (*entity.InvoiceData, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cleaned := CleanResponse(raw)

	var m map[string]any
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		return nil, common.NewAppErrorDetail(
			common.CodeMalformedOutput,
			"failed to parse structured data from AI response",
			fmt.Sprintf("JSON parse error: %v", err),
			err,
		)
	}

	dropped := sanitize(m)
	if len(dropped) > 0 {
		logger.Warn("llm.normalize.sanitized", "dropped", dropped)
	}

	doc, err := json.Marshal(m)
	if err != nil {
		return nil, common.NewAppError(common.CodeMalformedOutput, "re-encode sanitized response", err)
	}

	if err := validateAgainstSchema(BuildInvoiceJSONSchema(), doc); err != nil {
		return nil, common.NewAppErrorDetail(
			common.CodeSchemaValidation,
			"AI response data failed validation",
			fmt.Sprintf("validation error: %v", err),
			err,
		)
	}

	var out entity.InvoiceData
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, common.NewAppError(common.CodeSchemaValidation, "decode validated response", err)
	}
	if out.Currency == "" {
		out.Currency = "USD"
	}
	if out.Items == nil {
		out.Items = []entity.LineItem{}
	}
	return &out, nil
}

// sanitize drops null/empty optionals and unknown keys so an otherwise
// valid document still validates against the strict schema. Required
// fields are never touched. Returns the list of dropped keys.
func sanitize(m map[string]any) []string {
	var dropped []string
	for _, k := range optionalFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case string:
			if strings.TrimSpace(t) == "" || strings.EqualFold(t, "null") {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			}
		}
	}
	for k := range m {
		if _, ok := knownFields[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}
	return dropped
}

// validateAgainstSchema validates data against schemaMap.
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
