package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	// One extra MB for multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, (s.maxMB+1)<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, common.NewAppError(common.CodeInvalidInput, "missing file field", err))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, common.NewAppError(common.CodeInvalidInput, "failed to read upload", err))
		return
	}

	contentType := header.Header.Get("Content-Type")
	// Browsers often send octet-stream; the extension is more trustworthy.
	if contentType == "" || contentType == "application/octet-stream" {
		if ct := contentTypeFromFilename(header.Filename); ct != "" {
			contentType = ct
		}
	}

	inv, err := s.extractor.Extract(r.Context(), extract.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inv)
}

type base64Request struct {
	Data     string `json:"data"`
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
}

func (s *Server) handleExtractBase64(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, (s.maxMB+1)<<20*2)

	var req base64Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, common.NewAppError(common.CodeInvalidInput, "invalid JSON body", err))
		return
	}
	if req.Data == "" {
		s.writeError(w, r, common.NewAppError(common.CodeInvalidInput, "data field is required", nil))
		return
	}

	// Tolerate data URLs ("data:application/pdf;base64,....").
	payload := req.Data
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		s.writeError(w, r, common.NewAppError(common.CodeInvalidInput, "data is not valid base64", err))
		return
	}

	inv, err := s.extractor.Extract(r.Context(), extract.Upload{
		Filename:    req.Filename,
		ContentType: req.Mimetype,
		Data:        data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.exporter.ExportXLSX(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, common.NewAppError(common.CodeInternal, "export failed", err))
		return
	}

	filename := fmt.Sprintf("invoices-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	cacheStatus := "ok"
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.cache.Ping(ctx); err != nil {
			// The cache is best-effort, so a down backend degrades, not fails.
			cacheStatus = "unavailable"
		}
	} else {
		cacheStatus = "disabled"
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":                  "ok",
		"cache":                   cacheStatus,
		"ai_circuit":              s.breaker.State().String(),
		"supported_content_types": supportedContentTypes(),
		"max_file_size_mb":        s.maxMB,
	})
}

func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, common.NewAppErrorDetail(common.CodeInvalidInput, "invalid date parameter",
			fmt.Sprintf("%s=%q is not a YYYY-MM-DD date", name, v), err)
	}
	return &t, nil
}

func contentTypeFromFilename(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return constants.ContentTypeForExt(filename[idx+1:])
}

func supportedContentTypes() []string {
	out := make([]string, 0, len(constants.SupportedContentTypes))
	for ct := range constants.SupportedContentTypes {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}
