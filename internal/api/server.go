// Package api exposes the HTTP interface for the auditor service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/prospect-auditor/internal/audit"
	"github.com/JakeFAU/prospect-auditor/internal/config"
	"github.com/JakeFAU/prospect-auditor/internal/discovery"
	"github.com/JakeFAU/prospect-auditor/internal/metrics"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
	"github.com/JakeFAU/prospect-auditor/internal/report"
)

// UserHeader names the caller every /v1 request acts on behalf of.
const UserHeader = "X-User-ID"

const (
	requestTimeout = 150 * time.Second
	maxBodyBytes   = 1 << 20
	maxListLimit   = 100
)

// Auditor runs single-site audits.
type Auditor interface {
	Run(ctx context.Context, req audit.Request) (audit.Result, error)
}

// Discoverer runs the lead discovery loop.
type Discoverer interface {
	Discover(ctx context.Context, req discovery.Request) ([]prospect.Lead, error)
}

// ReportGenerator renders a stored record as a PDF.
type ReportGenerator interface {
	Generate(record prospect.AuditRecord) (report.Document, []byte, error)
}

// Deps are the collaborators behind the handlers.
type Deps struct {
	Auditor    Auditor
	Discoverer Discoverer
	Store      prospect.AuditStore
	Reports    ReportGenerator
	// Ready reports downstream health for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

// Server wires HTTP handlers to the audit and discovery pipelines.
type Server struct {
	router chi.Router
	deps   Deps
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{deps: deps, cfg: cfg, logger: logger.Named("api")}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Use(timeoutMiddleware(requestTimeout))
		r.Use(userMiddleware)
		r.Route("/audits", func(r chi.Router) {
			r.Post("/", s.createAudit)
			r.Get("/", s.listAudits)
			r.Route("/{audit_id}", func(r chi.Router) {
				r.Get("/", s.getAudit)
				r.Get("/report", s.getReport)
			})
		})
		r.Post("/discoveries", s.discover)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			s.writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type auditRequest struct {
	URL         string `json:"url"`
	UseCache    *bool  `json:"use_cache"`
	MaxAgeHours int    `json:"max_age_hours"`
}

func (s *Server) createAudit(w http.ResponseWriter, r *http.Request) {
	var body auditRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(body.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "url required")
		return
	}
	if body.MaxAgeHours < 0 {
		s.writeError(w, http.StatusBadRequest, "max_age_hours must be >= 0")
		return
	}
	req := audit.Request{
		UserID:   userFrom(r.Context()),
		URL:      body.URL,
		UseCache: body.UseCache == nil || *body.UseCache,
		MaxAge:   s.cfg.CacheMaxAge(),
	}
	if body.MaxAgeHours > 0 {
		req.MaxAge = time.Duration(body.MaxAgeHours) * time.Hour
	}

	result, err := s.deps.Auditor.Run(r.Context(), req)
	if err != nil {
		s.writeFailure(w, err, "audit failed")
		return
	}
	status := http.StatusCreated
	if result.IsExisting {
		status = http.StatusOK
	}
	s.writeJSON(w, status, result)
}

func (s *Server) listAudits(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	records, err := s.deps.Store.GetAuditRecordsByUser(r.Context(), userFrom(r.Context()), limit)
	if err != nil {
		s.writeFailure(w, err, "failed to list audits")
		return
	}
	if records == nil {
		records = []prospect.AuditRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"audits": records, "count": len(records)})
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	record, ok := s.ownedRecord(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	record, ok := s.ownedRecord(w, r)
	if !ok {
		return
	}
	_, pdf, err := s.deps.Reports.Generate(record)
	if err != nil {
		s.logger.Error("report generation failed", zap.String("audit_id", record.ID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+record.Domain+`-audit.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		s.logger.Warn("report write failed", zap.Error(err))
	}
}

// ownedRecord loads the audit named in the path. Records of other users are
// reported as missing.
func (s *Server) ownedRecord(w http.ResponseWriter, r *http.Request) (prospect.AuditRecord, bool) {
	id := chi.URLParam(r, "audit_id")
	record, err := s.deps.Store.GetAuditRecordByID(r.Context(), id)
	if err == nil && record.UserID != userFrom(r.Context()) {
		err = prospect.ErrNotFound
	}
	if err != nil {
		s.writeFailure(w, err, "failed to load audit")
		return prospect.AuditRecord{}, false
	}
	return record, true
}

type discoveryRequest struct {
	Industry string `json:"industry"`
	City     string `json:"city"`
	State    string `json:"state"`
	Target   int    `json:"target"`
}

func (s *Server) discover(w http.ResponseWriter, r *http.Request) {
	var body discoveryRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	body.Industry = strings.TrimSpace(body.Industry)
	body.City = strings.TrimSpace(body.City)
	if body.Industry == "" || body.City == "" {
		s.writeError(w, http.StatusBadRequest, "industry and city required")
		return
	}
	if body.Target < 0 {
		s.writeError(w, http.StatusBadRequest, "target must be >= 0")
		return
	}
	target := body.Target
	if target == 0 {
		target = s.cfg.Discovery.DefaultTarget
	}

	leads, err := s.deps.Discoverer.Discover(r.Context(), discovery.Request{
		UserID:   userFrom(r.Context()),
		Industry: body.Industry,
		City:     body.City,
		State:    strings.TrimSpace(body.State),
		Target:   target,
	})
	if err != nil {
		s.writeFailure(w, err, "discovery failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "count": len(leads)})
}

// writeFailure maps pipeline errors onto HTTP statuses.
func (s *Server) writeFailure(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, audit.ErrInvalidRequest):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, prospect.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "audit not found")
	case errors.Is(err, prospect.ErrNoLeads):
		s.writeError(w, http.StatusNotFound, prospect.ErrNoLeads.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, msg)
	default:
		s.logger.Error(msg, zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, msg)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

type requestIDKey struct{}

type userKey struct{}

func userFrom(ctx context.Context) string {
	user, _ := ctx.Value(userKey{}).(string)
	return user
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(UserHeader))
		if user == "" {
			_ = writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing " + UserHeader + " header"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			reqID, _ := r.Context().Value(requestIDKey{}).(string)
			logger.Info("request completed",
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
					_ = writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				_ = writeJSON(w, http.StatusForbidden, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := writeJSON(w, status, payload); err != nil {
		s.logger.Warn("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}
