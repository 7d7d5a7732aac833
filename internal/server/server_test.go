package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/resilience"
)

type stubExtractor struct {
	lastUpload extract.Upload
	inv        *entity.InvoiceData
	err        error
}

func (s *stubExtractor) Extract(_ context.Context, up extract.Upload) (*entity.InvoiceData, error) {
	s.lastUpload = up
	if s.err != nil {
		return nil, s.err
	}
	return s.inv, nil
}

type stubExporter struct {
	out []byte
	err error
}

func (s *stubExporter) ExportXLSX(context.Context, *time.Time, *time.Time) ([]byte, error) {
	return s.out, s.err
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func testInvoice() *entity.InvoiceData {
	return &entity.InvoiceData{
		InvoiceNumber: "INV-1",
		VendorName:    "Acme",
		Subtotal:      10,
		Tax:           1,
		Total:         11,
		Currency:      "USD",
		Items:         []entity.LineItem{},
	}
}

func newTestServer(ex *stubExtractor) *Server {
	return New(":0", ex, &stubExporter{out: []byte("xlsx-bytes")}, stubPinger{},
		resilience.NewBreaker(5, time.Minute, nil), 10, nil)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var body apiResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func multipartBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	if contentType != "" {
		hdr["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleExtractMultipart(t *testing.T) {
	ex := &stubExtractor{inv: testInvoice()}
	srv := newTestServer(ex)

	body, ct := multipartBody(t, "invoice.pdf", "application/pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/v1/extract", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if !resp.Success {
		t.Errorf("success = false: %+v", resp)
	}
	if ex.lastUpload.Filename != "invoice.pdf" || ex.lastUpload.ContentType != "application/pdf" {
		t.Errorf("upload = %+v", ex.lastUpload)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestHandleExtractRecoversContentTypeFromExtension(t *testing.T) {
	ex := &stubExtractor{inv: testInvoice()}
	srv := newTestServer(ex)

	body, ct := multipartBody(t, "scan.png", "application/octet-stream", []byte("png bytes"))
	req := httptest.NewRequest(http.MethodPost, "/v1/extract", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ex.lastUpload.ContentType != "image/png" {
		t.Errorf("content type = %q, want image/png", ex.lastUpload.ContentType)
	}
}

func TestHandleExtractMissingFileField(t *testing.T) {
	srv := newTestServer(&stubExtractor{inv: testInvoice()})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeBody(t, rec); resp.ErrorCode != common.CodeInvalidInput {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}
}

func TestHandleExtractBase64(t *testing.T) {
	ex := &stubExtractor{inv: testInvoice()}
	srv := newTestServer(ex)

	payload := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))
	body := `{"data":"data:application/pdf;base64,` + payload + `","filename":"invoice.pdf","mimetype":"application/pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/extract-base64", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if string(ex.lastUpload.Data) != "%PDF-1.4" {
		t.Errorf("decoded data = %q", ex.lastUpload.Data)
	}
}

func TestHandleExtractBase64BadPayload(t *testing.T) {
	srv := newTestServer(&stubExtractor{inv: testInvoice()})

	req := httptest.NewRequest(http.MethodPost, "/v1/extract-base64",
		strings.NewReader(`{"data":"%%% not base64 %%%","filename":"x.pdf"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{common.CodeInvalidInput, http.StatusBadRequest},
		{common.CodeCircuitOpen, http.StatusServiceUnavailable},
		{common.CodeAIServiceError, http.StatusBadGateway},
		{common.CodeEmptyAIResponse, http.StatusBadGateway},
		{common.CodeMalformedOutput, http.StatusBadGateway},
		{common.CodeSchemaValidation, http.StatusBadGateway},
		{common.CodeOCRFailed, http.StatusInternalServerError},
		{common.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			ex := &stubExtractor{err: common.NewAppError(tc.code, "boom", nil)}
			srv := newTestServer(ex)

			body, ct := multipartBody(t, "invoice.pdf", "application/pdf", []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/v1/extract", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
			if resp := decodeBody(t, rec); resp.ErrorCode != tc.code || resp.Success {
				t.Errorf("body = %+v", resp)
			}
		})
	}
}

func TestUnknownErrorMapsToInternal(t *testing.T) {
	ex := &stubExtractor{err: errors.New("plain failure")}
	srv := newTestServer(ex)

	body, ct := multipartBody(t, "invoice.pdf", "application/pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/v1/extract", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if resp := decodeBody(t, rec); resp.ErrorCode != common.CodeInternal {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&stubExtractor{inv: testInvoice()})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleHealthDetailed(t *testing.T) {
	srv := New(":0", &stubExtractor{inv: testInvoice()}, &stubExporter{}, stubPinger{err: errors.New("down")},
		resilience.NewBreaker(5, time.Minute, nil), 10, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/health/detailed", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Data struct {
			Status    string `json:"status"`
			Cache     string `json:"cache"`
			AICircuit string `json:"ai_circuit"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Cache != "unavailable" {
		t.Errorf("cache = %q, want unavailable", body.Data.Cache)
	}
	if body.Data.AICircuit != "closed" {
		t.Errorf("ai_circuit = %q, want closed", body.Data.AICircuit)
	}
}

func TestHandleExport(t *testing.T) {
	srv := newTestServer(&stubExtractor{inv: testInvoice()})

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/export?from=2026-08-01&to=2026-08-31", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "invoices-") {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Body.String() != "xlsx-bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleExportBadDate(t *testing.T) {
	srv := newTestServer(&stubExtractor{inv: testInvoice()})

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/export?from=08-01-2026", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
