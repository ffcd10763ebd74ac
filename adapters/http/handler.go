// Package http provides HTTP handlers for the teapot server.
package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/zerotobillion/teapot-server/adapters/metrics"
	"github.com/zerotobillion/teapot-server/app"
	"github.com/zerotobillion/teapot-server/domain/brew"
)

// MethodBrew is the protocol's own verb.
const MethodBrew = "BREW"

// maxBodySize caps the command body read. Commands are a few bytes;
// anything larger is malformed anyway.
const maxBodySize = 1 << 16

// BrewHandler wraps the brew service for HTTP handling.
type BrewHandler struct {
	service *app.BrewService
	home    []byte
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewBrewHandler creates a new HTTP brew handler. home is the HTML
// served on GET.
func NewBrewHandler(service *app.BrewService, home []byte, logger zerolog.Logger) *BrewHandler {
	return &BrewHandler{
		service: service,
		home:    home,
		logger:  logger,
	}
}

// NewBrewHandlerWithMetrics creates a new HTTP brew handler with metrics.
func NewBrewHandlerWithMetrics(service *app.BrewService, home []byte, logger zerolog.Logger, m *metrics.Collector) *BrewHandler {
	return &BrewHandler{
		service: service,
		home:    home,
		logger:  logger,
		metrics: m,
	}
}

// ServeHTTP handles pot requests: GET serves the landing page, BREW
// runs the state machine, anything else is rejected.
func (h *BrewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	variant, ok := pathVariant(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(h.home)
		h.observe(r.Method, variant, "home", start)
		return

	case MethodBrew:
		// fall through to the state machine

	default:
		writeError(w, nil, &brew.ErrMethodNotAllowed)
		h.observe(r.Method, variant, brew.ErrMethodNotAllowed.Code, start)
		return
	}

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to read request body")
			writeError(w, nil, &brew.ErrMalformedCommand)
			h.observe(r.Method, variant, brew.ErrMalformedCommand.Code, start)
			return
		}
	}

	req := brew.Request{
		Method:      r.Method,
		Variant:     variant,
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
		RemoteAddr:  clientIP(r),
		Contact:     r.Header.Get("Email"),
		Host:        r.Host,
		TraceID:     middleware.GetReqID(ctx),
	}

	result := h.service.Handle(ctx, req)
	h.logRequest(ctx, req, result)

	if result.Error != nil {
		writeError(w, result.Headers, result.Error)
		h.observe(r.Method, variant, result.Error.Code, start)
		return
	}

	writeResponse(w, result.Response)
	h.observe(r.Method, variant, "ok", start)
}

// pathVariant maps a request path onto a pot variant. The root maps to
// the empty variant; nested paths belong to no pot.
func pathVariant(path string) (string, bool) {
	trimmed := strings.Trim(path, "/")
	if strings.Contains(trimmed, "/") {
		return "", false
	}
	return trimmed, true
}

// clientIP extracts the client IP from the request. RealIP middleware
// has already folded X-Forwarded-For / X-Real-IP into RemoteAddr, in
// which case the address carries no port at all.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (h *BrewHandler) observe(method, variant, outcome string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.RequestsTotal.WithLabelValues(method, variant, outcome).Inc()
	h.metrics.RequestDuration.WithLabelValues(method, variant).Observe(time.Since(start).Seconds())
}

func (h *BrewHandler) logRequest(ctx context.Context, req brew.Request, result app.HandleResult) {
	if result.Error != nil {
		h.logger.Warn().
			Str("method", req.Method).
			Str("variant", req.Variant).
			Str("client", req.RemoteAddr).
			Int("error_status", result.Error.Status).
			Str("error_code", result.Error.Code).
			Str("request_id", req.TraceID).
			Msg("brew request rejected")
		return
	}
	h.logger.Info().
		Str("method", req.Method).
		Str("variant", req.Variant).
		Str("client", req.RemoteAddr).
		Int("status", result.Response.Status).
		Str("request_id", req.TraceID).
		Msg("brew request")
}

// writeResponse writes a protocol response as plain text.
func writeResponse(w http.ResponseWriter, resp brew.Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(resp.Status)
	if resp.Body != "" {
		io.WriteString(w, resp.Body)
	}
}

// writeError writes a protocol rejection as plain text.
func writeError(w http.ResponseWriter, headers map[string]string, err *brew.ErrorResponse) {
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(err.Status)
	if err.Message != "" {
		io.WriteString(w, err.Message)
	}
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	checker HealthChecker
}

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewHealthHandler creates a new health handler. checker may be nil
// when there is nothing to probe.
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Liveness reports the process is up.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}

// Readiness reports whether backing dependencies answer.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil {
		if err := h.checker.HealthCheck(r.Context()); err != nil {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, "not ready")
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ready")
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // Optional metrics exporter handler (for /metrics endpoint)
	Timeout        time.Duration
}

var registerBrewOnce sync.Once

// registerBrewMethod teaches chi the BREW verb. Must run before any
// route is registered.
func registerBrewMethod() {
	registerBrewOnce.Do(func() {
		chi.RegisterMethod(MethodBrew)
	})
}

// NewRouter creates the main HTTP router with default config.
func NewRouter(brewHandler *BrewHandler, healthHandler *HealthHandler, logger zerolog.Logger) chi.Router {
	return NewRouterWithConfig(brewHandler, healthHandler, logger, RouterConfig{})
}

// NewRouterWithConfig creates the main HTTP router with optional config.
func NewRouterWithConfig(brewHandler *BrewHandler, healthHandler *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	registerBrewMethod()

	r := chi.NewRouter()

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// Health endpoints
	r.Get("/health", healthHandler.Liveness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// Metrics endpoint
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	} else if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Everything else belongs to the pots
	r.Handle("/*", brewHandler)
	r.NotFound(brewHandler.ServeHTTP)
	r.MethodNotAllowed(brewHandler.ServeHTTP)

	return r
}

// NewLoggingMiddleware creates request logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
