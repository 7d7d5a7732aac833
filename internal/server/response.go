package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

type apiResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// statusForCode maps failure codes to HTTP status lines. Upstream trouble
// is 502/503, caller mistakes are 400, everything else is on us.
func statusForCode(code string) int {
	switch code {
	case common.CodeInvalidInput:
		return http.StatusBadRequest
	case common.CodeCircuitOpen:
		return http.StatusServiceUnavailable
	case common.CodeAIServiceError, common.CodeEmptyAIResponse,
		common.CodeMalformedOutput, common.CodeSchemaValidation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := apiResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("server.encode_response_failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := common.AsAppError(err)
	if !ok {
		ae = common.NewAppError(common.CodeInternal, "internal error", err)
	}
	status := statusForCode(ae.Code)

	s.logger.Error("server.request_failed",
		"req_id", common.RequestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"code", ae.Code,
		"status", status,
		"error", err,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := apiResponse{
		Success:   false,
		Error:     ae.Message,
		ErrorCode: ae.Code,
		Detail:    ae.Detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		s.logger.Error("server.encode_response_failed", "error", encErr)
	}
}
