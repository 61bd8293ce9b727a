package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mixelka/mailhook/internal/ingest"
	"github.com/mixelka/mailhook/internal/subscription"
	"github.com/mixelka/mailhook/pkg/models"
)

const maxBodySize = 4 << 20

// Ingester processes a webhook delivery
type Ingester interface {
	HandleBatch(ctx context.Context, notes []models.Notification) (ingest.Result, error)
}

// StatusReporter reports subscription liveness
type StatusReporter interface {
	Status() subscription.Status
}

// Server is the webhook HTTP surface
type Server struct {
	ingester Ingester
	status   StatusReporter
	logger   *slog.Logger
	onAlert  func(models.Alert)
	router   chi.Router
}

// New creates the server. timeout bounds the handling of a single request.
func New(ingester Ingester, status StatusReporter, timeout time.Duration, logger *slog.Logger) *Server {
	s := &Server{
		ingester: ingester,
		status:   status,
		logger:   logger.With("component", "http"),
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	// Routes
	r.Get("/health", s.health)
	r.Get("/health/subscription", s.subscriptionHealth)
	r.Get("/notifications", s.notifications)
	r.Post("/notifications", s.notifications)

	s.router = r
	return s
}

// SetAlertHandler sets the handler for pipeline failures
func (s *Server) SetAlertHandler(handler func(models.Alert)) {
	s.onAlert = handler
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) subscriptionHealth(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusServiceUnavailable, subscription.Status{State: subscription.StateUninitialized.String()})
		return
	}

	st := s.status.Status()
	code := http.StatusOK
	if !st.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, st)
}

type processedResponse struct {
	Status string `json:"status"`
	Saved  int    `json:"saved"`
	Error  string `json:"error,omitempty"`
}

// notifications answers the validation handshake or ingests a delivery
func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	if token := r.URL.Query().Get("validationToken"); token != "" {
		s.logger.Info("answering validation handshake")
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, token)
		return
	}

	var batch models.NotificationBatch
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.logger.Warn("failed to read notification body", "error", err)
	} else if len(body) > 0 {
		if err := json.Unmarshal(body, &batch); err != nil {
			s.logger.Warn("malformed notification body", "error", err)
		}
	}

	if len(batch.Value) == 0 {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, "No notifications")
		return
	}

	res, err := s.ingester.HandleBatch(r.Context(), batch.Value)
	if err != nil {
		s.logger.Error("notification processing failed",
			"error", err,
			"notifications", len(batch.Value),
			"saved", res.Saved(),
		)
		if s.onAlert != nil {
			s.onAlert(models.Alert{
				Severity:  models.AlertWarning,
				Component: "ingest",
				Title:     "Notification processing failed",
				Detail:    err.Error(),
				Time:      time.Now(),
			})
		}
		writeJSON(w, http.StatusInternalServerError, processedResponse{
			Status: "Notification processing failed",
			Saved:  res.Saved(),
			Error:  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusAccepted, processedResponse{Status: "Notifications processed", Saved: res.Saved()})
}

// logRequests logs every request through slog
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
