// Package server exposes the extraction flow over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/resilience"
)

// Extractor runs one upload through the extraction flow.
type Extractor interface {
	Extract(ctx context.Context, up extract.Upload) (*entity.InvoiceData, error)
}

// Exporter renders the extraction history as an XLSX workbook.
type Exporter interface {
	ExportXLSX(ctx context.Context, from, to *time.Time) ([]byte, error)
}

// Pinger reports backend reachability for the detailed health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	extractor Extractor
	exporter  Exporter
	cache     Pinger
	breaker   *resilience.Breaker
	logger    *slog.Logger
	maxMB     int64

	httpSrv *http.Server
}

func New(
	addr string,
	extractor Extractor,
	exporter Exporter,
	cache Pinger,
	breaker *resilience.Breaker,
	maxFileSizeMB int64,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		extractor: extractor,
		exporter:  exporter,
		cache:     cache,
		breaker:   breaker,
		logger:    logger,
		maxMB:     maxFileSizeMB,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)

	r.Post("/v1/extract", s.handleExtract)
	r.Post("/v1/extract-base64", s.handleExtractBase64)
	r.Get("/v1/invoices/export", s.handleExport)
	r.Get("/v1/health", s.handleHealth)
	r.Get("/v1/health/detailed", s.handleHealthDetailed)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("server.start", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server.shutdown")
	return s.httpSrv.Shutdown(ctx)
}

// requestID carries chi's request ID into the application context and
// echoes it back to the client.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), id)))
	})
}
