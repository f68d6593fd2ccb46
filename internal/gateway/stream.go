package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/embedchat/widget-gateway/internal/apierr"
	"github.com/embedchat/widget-gateway/internal/httputil"
	"github.com/embedchat/widget-gateway/internal/metrics"
	"github.com/embedchat/widget-gateway/internal/upstream"
)

// ChatStream handles POST /chat-stream: it opens an upstream delta stream
// and relays each token to the client as an SSE frame.
//
// Failures before the response headers are committed come back as plain JSON
// errors; once headers are out, the only legal failure signal is a single
// in-band error frame. The upstream subscription is opened before headers so
// an outright upstream rejection still gets the JSON path.
func (h *handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	if h.cfg.UpstreamAPIKey == "" {
		apierr.Write(w, http.StatusInternalServerError, apierr.ErrNotConfigured.Error())
		return
	}

	req, err := h.parseRequest(r)
	if err != nil {
		apierr.Write(w, http.StatusBadRequest, err.Error())
		return
	}

	// One cancellation signal owns both the upstream subscription and the
	// heartbeat. r.Context() is done on client disconnect, so that path
	// funnels into the same cleanup.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	start := time.Now()
	deltas, err := h.provider.Stream(ctx, req)
	metrics.UpstreamDuration.WithLabelValues("streaming").Observe(time.Since(start).Seconds())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	h.relay(ctx, w, deltas)
}

// relay drives one stream session: flushed headers, heartbeats, deltas in
// arrival order, and exactly one terminal frame. A single goroutine selects
// over the ticker, the delta channel, and cancellation, so writes to the
// sink stay serialized.
func (h *handler) relay(ctx context.Context, w http.ResponseWriter, deltas <-chan upstream.Delta) {
	sessionID := uuid.NewString()

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	// Commit and flush headers before any body byte so intermediaries do not
	// hold the response waiting for a content length.
	httputil.SetSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flush()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("stream closed by client", "session_id", sessionID)
			return

		case <-ticker.C:
			if err := httputil.WriteKeepAlive(w); err != nil {
				slog.Debug("keep-alive write failed", "session_id", sessionID, "error", err)
				return
			}
			flush()
			metrics.StreamFramesTotal.WithLabelValues("keep-alive").Inc()

		case d, ok := <-deltas:
			if !ok {
				// Upstream finished normally.
				_ = httputil.WriteDone(w)
				flush()
				metrics.StreamFramesTotal.WithLabelValues("done").Inc()
				return
			}
			if d.Err != nil {
				slog.Warn("upstream failed mid-stream", "session_id", sessionID, "error", d.Err)
				_ = httputil.WriteErrorEvent(w, d.Err.Error())
				flush()
				metrics.StreamFramesTotal.WithLabelValues("error").Inc()
				return
			}
			if err := httputil.WriteData(w, d.Text); err != nil {
				slog.Debug("data write failed", "session_id", sessionID, "error", err)
				return
			}
			flush()
			metrics.StreamFramesTotal.WithLabelValues("data").Inc()
		}
	}
}
