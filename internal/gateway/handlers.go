package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/embedchat/widget-gateway/internal/apierr"
	"github.com/embedchat/widget-gateway/internal/config"
	"github.com/embedchat/widget-gateway/internal/metrics"
	"github.com/embedchat/widget-gateway/internal/upstream"
)

// emptyReplyPlaceholder substitutes for an upstream reply with no content,
// so the widget never renders an empty bubble.
const emptyReplyPlaceholder = "Sorry, I couldn't generate a response."

type handler struct {
	cfg       *config.Config
	provider  upstream.Provider
	heartbeat time.Duration
}

// Healthz is a liveness check; it never touches the upstream.
func (h *handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Generate handles POST /generate: one validated request in, one aggregated
// reply out.
func (h *handler) Generate(w http.ResponseWriter, r *http.Request) {
	if h.cfg.UpstreamAPIKey == "" {
		apierr.Write(w, http.StatusInternalServerError, apierr.ErrNotConfigured.Error())
		return
	}

	req, err := h.parseRequest(r)
	if err != nil {
		apierr.Write(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	reply, err := h.provider.Complete(ctx, req)
	metrics.UpstreamDuration.WithLabelValues("blocking").Observe(time.Since(start).Seconds())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if reply == "" {
		reply = emptyReplyPlaceholder
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(generateResponse{Reply: reply})
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	msg := err.Error()
	if strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, "timeout") {
		apierr.Write(w, http.StatusGatewayTimeout, "upstream timeout")
		return
	}
	apierr.Write(w, http.StatusBadGateway, msg)
}
