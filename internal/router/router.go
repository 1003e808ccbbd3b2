package router

import (
	"net/http"

	"github.com/certifyapp/certnotify/internal/handler"
	"github.com/certifyapp/certnotify/internal/metrics"
	"github.com/certifyapp/certnotify/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, m *metrics.Metrics, maxInstances int) http.Handler {
	mux := http.NewServeMux()

	// Probes and metrics are never throttled
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
	mux.Handle("GET /metrics", m.Handler())

	// Event push endpoint: source authentication, then admission control
	admit := mw.ConcurrencyLimit(maxInstances)
	mux.Handle("POST /{$}", mw.PushAuth(admit(http.HandlerFunc(h.ReceiveEvent))))

	// Apply middleware stack
	var handler http.Handler = mux

	// Request logging
	handler = mw.Logger(handler)

	// Request ID
	handler = mw.RequestID(handler)

	// Panic recovery (outermost)
	handler = mw.Recover(handler)

	return handler
}
