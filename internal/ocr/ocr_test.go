package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// stubRunner records the command it was asked to run and serves canned output.
type stubRunner struct {
	lookPathErr error

	name   string
	args   []string
	stdout string
	stderr string
	err    error
}

func (s *stubRunner) LookPath(name string) (string, error) {
	if s.lookPathErr != nil {
		return "", s.lookPathErr
	}
	return "/usr/bin/" + name, nil
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.name = name
	s.args = args
	return []byte(s.stdout), []byte(s.stderr), s.err
}

func writeTempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestExtractor(r Runner) *Extractor {
	e := NewExtractor(Config{}, nil)
	e.runner = r
	return e
}

func TestExtractRoutesPDFToPdftotext(t *testing.T) {
	r := &stubRunner{stdout: "Invoice INV-1\nTotal: 11.00\n"}
	e := newTestExtractor(r)

	path := writeTempFile(t, "invoice.pdf")
	text, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != r.stdout {
		t.Errorf("text = %q, want stdout passthrough", text)
	}
	if r.name != "pdftotext" {
		t.Errorf("ran %q, want pdftotext", r.name)
	}
	want := []string{"-layout", path, "-"}
	if len(r.args) != len(want) {
		t.Fatalf("args = %v, want %v", r.args, want)
	}
	for i := range want {
		if r.args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, r.args[i], want[i])
		}
	}
}

func TestExtractRoutesImageToTesseract(t *testing.T) {
	r := &stubRunner{stdout: "scanned text"}
	e := newTestExtractor(r)

	path := writeTempFile(t, "scan.png")
	text, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "scanned text" {
		t.Errorf("text = %q", text)
	}
	if r.name != "tesseract" {
		t.Errorf("ran %q, want tesseract", r.name)
	}
	if len(r.args) != 4 || r.args[1] != "stdout" || r.args[3] != "eng" {
		t.Errorf("args = %v", r.args)
	}
}

func TestExtractUnsupportedExtension(t *testing.T) {
	e := newTestExtractor(&stubRunner{})
	path := writeTempFile(t, "notes.txt")
	if _, err := e.Extract(context.Background(), path); err == nil {
		t.Fatal("expected error for .txt")
	}
}

func TestExtractMissingFile(t *testing.T) {
	e := newTestExtractor(&stubRunner{})
	if _, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "gone.pdf")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExtractDegradesWhenToolMissing(t *testing.T) {
	r := &stubRunner{lookPathErr: errors.New("executable file not found")}
	e := newTestExtractor(r)

	path := writeTempFile(t, "invoice.pdf")
	text, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("degraded mode should not error: %v", err)
	}
	if !strings.Contains(text, "text extraction unavailable") {
		t.Errorf("text = %q, want placeholder", text)
	}
	if !strings.Contains(text, "invoice.pdf") {
		t.Errorf("placeholder should name the file: %q", text)
	}
	if r.name != "" {
		t.Errorf("command was run despite missing tool: %q", r.name)
	}
}

func TestExtractToolFailureSurfacesStderr(t *testing.T) {
	r := &stubRunner{err: errors.New("exit status 1"), stderr: "Syntax Error: corrupt PDF"}
	e := newTestExtractor(r)

	path := writeTempFile(t, "invoice.pdf")
	_, err := e.Extract(context.Background(), path)
	if err == nil {
		t.Fatal("expected error from tool failure")
	}
	if !strings.Contains(err.Error(), "corrupt PDF") {
		t.Errorf("error should carry stderr: %v", err)
	}
}
