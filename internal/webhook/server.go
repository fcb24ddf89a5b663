package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quoteflow/webhookd/internal/metrics"
)

// DefaultMaxBodySize bounds inbound payloads. 1 MB covers every documented
// platform payload with room to spare.
const DefaultMaxBodySize = 1048576

// Config holds ingestion server configuration.
type Config struct {
	Listen       string
	SharedSecret string
	MaxBodySize  int64
}

// QueueDepther reports pending retry entries for the health endpoint.
// Satisfied by *retry.Queue.
type QueueDepther interface {
	Depth(ctx context.Context) (int, error)
}

// AckResponse is the JSON body for acknowledged deliveries.
type AckResponse struct {
	Status     string `json:"status"`
	DeliveryID string `json:"delivery_id"`
	Error      string `json:"error,omitempty"`
}

// ErrorResponse is the JSON body for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the JSON body for the status endpoint.
type StatusResponse struct {
	WindowHours int           `json:"window_hours"`
	Shop        string        `json:"shop,omitempty"`
	Stats       DeliveryStats `json:"stats"`
}

// HealthzResponse is the JSON body for the health endpoint.
type HealthzResponse struct {
	Status          string `json:"status"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	RetryQueueDepth int    `json:"retry_queue_depth"`
	Topics          int    `json:"topics"`
}

// Server is the HTTP entry point for the ingestion pipeline.
type Server struct {
	config   Config
	pipeline *Pipeline
	audit    AuditLog
	depther  QueueDepther
	logger   *slog.Logger
	server   *http.Server

	startedAt time.Time
	now       func() time.Time
}

// NewServer creates the ingestion server.
func NewServer(config Config, pipeline *Pipeline, audit AuditLog, depther QueueDepther, logger *slog.Logger) *Server {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	return &Server{
		config:    config,
		pipeline:  pipeline,
		audit:     audit,
		depther:   depther,
		logger:    logger.With("component", "server"),
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// Handler returns the fully routed HTTP handler. Useful for embedding the
// server in tests or behind an existing mux.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start starts the HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("ingestion server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("ingestion server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ingestion server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("ingestion server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post("/webhooks", s.handleIngest)
	r.Get("/webhooks/status", s.handleStatus)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// loggingMiddleware logs HTTP requests (excludes payload content).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleIngest sequences one delivery: read raw body, verify, parse, extract
// metadata, process, respond.
//
// Response policy: the status code exists solely to steer the sender's own
// retry behavior. Failures that produced an internal retry entry are
// acknowledged with 200 so the sender does not also redeliver; 500 is
// reserved for pre-handler I/O failure where no retry entry exists.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	receivedAt := s.now().UTC()

	// The signature covers the exact raw bytes, so the body must be read
	// before any parsing.
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodySize+1))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		metrics.DeliveriesRejected.Inc()
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	meta := ExtractMetadata(r.Header, receivedAt)

	if !VerifySignature(body, meta.Signature, s.config.SharedSecret) {
		// Permanent security rejection; never audited as a retryable failure.
		metrics.DeliveriesRejected.Inc()
		s.logger.Warn("signature verification failed",
			"shop", meta.ShopDomain,
			"delivery_id", meta.DeliveryID,
			"request_id", middleware.GetReqID(ctx),
		)
		s.respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	// A parse failure is a permanent client error, distinct from an
	// authentication failure.
	if !json.Valid(body) {
		metrics.DeliveriesRejected.Inc()
		s.logger.Warn("malformed payload",
			"shop", meta.ShopDomain,
			"delivery_id", meta.DeliveryID,
		)
		s.respondError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	delivery := &Delivery{
		Topic:       meta.Topic,
		ShopDomain:  meta.ShopDomain,
		DeliveryID:  meta.DeliveryID,
		ReceivedAt:  receivedAt,
		TriggeredAt: meta.TriggeredAt,
		RawBody:     body,
		Signature:   meta.Signature,
		Attempt:     0,
	}

	outcome := s.pipeline.Process(ctx, delivery)

	switch {
	case outcome.Success && outcome.Processed:
		s.respondJSON(w, http.StatusOK, AckResponse{Status: "processed", DeliveryID: delivery.DeliveryID})
	case outcome.Success:
		s.respondJSON(w, http.StatusOK, AckResponse{Status: "skipped", DeliveryID: delivery.DeliveryID})
	case outcome.Retryable:
		s.respondJSON(w, http.StatusOK, AckResponse{
			Status:     "retry_scheduled",
			DeliveryID: delivery.DeliveryID,
			Error:      outcome.Err,
		})
	default:
		// Permanent failure: acknowledged with the error embedded so the
		// sender does not redeliver a broken event forever.
		s.respondJSON(w, http.StatusOK, AckResponse{
			Status:     "failed",
			DeliveryID: delivery.DeliveryID,
			Error:      outcome.Err,
		})
	}
}

// handleStatus handles GET /webhooks/status with an optional shop filter.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	const window = 24 * time.Hour
	shop := r.URL.Query().Get("shop")

	stats, err := s.audit.Stats(r.Context(), shop, s.now().Add(-window))
	if err != nil {
		s.logger.Error("failed to query delivery stats", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to query delivery stats")
		return
	}

	s.respondJSON(w, http.StatusOK, StatusResponse{
		WindowHours: int(window.Hours()),
		Shop:        shop,
		Stats:       stats,
	})
}

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	depth, err := s.depther.Depth(r.Context())
	if err != nil {
		s.logger.Error("failed to compute retry queue depth", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to compute retry queue depth")
		return
	}

	s.respondJSON(w, http.StatusOK, HealthzResponse{
		Status:          "ok",
		UptimeSeconds:   int64(time.Since(s.startedAt).Seconds()),
		RetryQueueDepth: depth,
		Topics:          s.pipeline.router.Topics(),
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
