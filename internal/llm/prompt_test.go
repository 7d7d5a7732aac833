package llm

import (
	"strings"
	"testing"
)

func TestBuildExtractionPrompt(t *testing.T) {
	t.Run("embeds invoice text verbatim", func(t *testing.T) {
		text := "Invoice #42\nTotal: $19.99  <weird>&chars"
		p := BuildExtractionPrompt(text, nil)
		if !strings.Contains(p, text) {
			t.Error("prompt does not embed invoice text verbatim")
		}
		if !strings.Contains(p, "Response (valid JSON only):") {
			t.Error("prompt missing response instruction")
		}
		if strings.Contains(p, "Table Data:") {
			t.Error("table section present without hints")
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a := BuildExtractionPrompt("same text", []string{"t"})
		b := BuildExtractionPrompt("same text", []string{"t"})
		if a != b {
			t.Error("prompt not deterministic")
		}
	})

	t.Run("enumerates table hints", func(t *testing.T) {
		p := BuildExtractionPrompt("text", []string{"qty|price", "desc|amount"})
		if !strings.Contains(p, "Table 1:\nqty|price") {
			t.Error("missing Table 1 section")
		}
		if !strings.Contains(p, "Table 2:\ndesc|amount") {
			t.Error("missing Table 2 section")
		}
	})

	t.Run("empty hint slice omits table section", func(t *testing.T) {
		p := BuildExtractionPrompt("text", []string{})
		if strings.Contains(p, "Table Data:") {
			t.Error("table section present for empty hints")
		}
	})
}
