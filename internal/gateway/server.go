// Package gateway serves the widget's HTTP API: a synchronous completion
// endpoint, an SSE streaming endpoint, and the origin gate in front of both.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/embedchat/widget-gateway/internal/config"
	"github.com/embedchat/widget-gateway/internal/origin"
	"github.com/embedchat/widget-gateway/internal/upstream"
)

// Server is the gateway HTTP server.
type Server struct {
	httpServer *http.Server
}

// New constructs a Server from the given config and upstream provider.
func New(cfg *config.Config, provider upstream.Provider) *Server {
	gate := origin.NewRuleSet(cfg.AllowedOrigins, cfg.AllowedOriginSuffixes)

	h := &handler{
		cfg:       cfg,
		provider:  provider,
		heartbeat: cfg.HeartbeatInterval,
	}

	router := mux.NewRouter()
	router.HandleFunc("/generate", h.Generate).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/chat-stream", h.ChatStream).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Use(originMiddleware(gate))

	var handler http.Handler = router
	handler = loggingMiddleware(handler)
	handler = recoveryMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:        cfg.ListenAddr,
			Handler:     handler,
			ReadTimeout: 30 * time.Second,
			// Streams outlive the blocking timeout; leave enough headroom
			// for a slow model plus heartbeats.
			WriteTimeout: cfg.RequestTimeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins listening and blocks until the server is stopped.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the underlying http.Handler (for use in tests with
// httptest.NewServer).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
