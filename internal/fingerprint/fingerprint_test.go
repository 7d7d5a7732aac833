package fingerprint

import (
	"strings"
	"testing"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func TestCompute(t *testing.T) {
	t.Run("deterministic for identical bytes", func(t *testing.T) {
		a, err := Compute([]byte("invoice body"))
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		b, err := Compute([]byte("invoice body"))
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		if a != b {
			t.Errorf("fingerprints differ: %s vs %s", a, b)
		}
	})

	t.Run("distinct for different bytes", func(t *testing.T) {
		a, _ := Compute([]byte("invoice a"))
		b, _ := Compute([]byte("invoice b"))
		if a == b {
			t.Errorf("fingerprints collide: %s", a)
		}
	})

	t.Run("64 lowercase hex characters", func(t *testing.T) {
		fp, _ := Compute([]byte{0x00, 0x01})
		if len(fp) != 64 {
			t.Fatalf("len = %d, want 64", len(fp))
		}
		if fp != strings.ToLower(fp) {
			t.Errorf("fingerprint not lowercase: %s", fp)
		}
	})

	t.Run("known digest", func(t *testing.T) {
		// sha256("abc")
		fp, _ := Compute([]byte("abc"))
		want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
		if fp != want {
			t.Errorf("fingerprint = %s, want %s", fp, want)
		}
	})

	t.Run("nil content rejected", func(t *testing.T) {
		_, err := Compute(nil)
		if err == nil {
			t.Fatal("expected error for nil content")
		}
		ae, ok := common.AsAppError(err)
		if !ok || ae.Code != common.CodeInvalidInput {
			t.Errorf("error = %v, want %s", err, common.CodeInvalidInput)
		}
	})

	t.Run("empty but non-nil content hashes", func(t *testing.T) {
		fp, err := Compute([]byte{})
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		if len(fp) != 64 {
			t.Errorf("len = %d, want 64", len(fp))
		}
	})
}
