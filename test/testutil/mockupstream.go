// Package testutil provides a mock OpenAI-compatible completion upstream.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"
)

// MockUpstream is an httptest.Server that simulates a chat-completions
// endpoint in both blocking and streaming modes.
type MockUpstream struct {
	Server *httptest.Server

	// Reply is the blocking-mode answer. Deltas are the streaming tokens.
	Reply  string
	Deltas []string

	// DeltaDelay is slept before each streaming delta.
	DeltaDelay time.Duration

	// FailAfter, when >= 0, emits an in-band error chunk after that many
	// deltas instead of finishing the stream.
	FailAfter int
	FailMsg   string

	// StatusCode, when non-zero, makes every request fail outright with the
	// given status and an OpenAI-style error body.
	StatusCode int
	ErrMsg     string

	requests atomic.Int64
	// LastRequest captures the most recent parsed request body.
	LastRequest map[string]any
}

// NewMockUpstream creates and starts a mock upstream that streams the given
// deltas and answers blocking calls with reply.
func NewMockUpstream(reply string, deltas ...string) *MockUpstream {
	m := &MockUpstream{
		Reply:     reply,
		Deltas:    deltas,
		FailAfter: -1,
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.Server.Close()
}

// URL returns the base URL of the mock server.
func (m *MockUpstream) URL() string {
	return m.Server.URL
}

// Requests reports how many completion calls reached the upstream.
func (m *MockUpstream) Requests() int64 {
	return m.requests.Load()
}

func (m *MockUpstream) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	m.LastRequest = body
	m.requests.Add(1)

	if m.StatusCode != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(m.StatusCode)
		fmt.Fprintf(w, `{"error":{"message":%q}}`, m.ErrMsg)
		return
	}

	if stream, _ := body["stream"].(bool); stream {
		m.writeStreaming(w)
		return
	}
	m.writeBlocking(w)
}

func (m *MockUpstream) writeBlocking(w http.ResponseWriter) {
	resp := map[string]any{
		"id": "chatcmpl-mock",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": m.Reply},
				"finish_reason": "stop",
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (m *MockUpstream) writeStreaming(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, hasFlusher := w.(http.Flusher)
	// Commit headers before any delta delay so the client sees the response
	// open immediately; otherwise DeltaDelay stalls the whole response start
	// instead of simulating slow token production.
	if hasFlusher {
		flusher.Flush()
	}
	emit := func(payload string) {
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if hasFlusher {
			flusher.Flush()
		}
	}

	for i, delta := range m.Deltas {
		if m.FailAfter >= 0 && i == m.FailAfter {
			emit(fmt.Sprintf(`{"error":{"message":%q}}`, m.FailMsg))
			return
		}
		if m.DeltaDelay > 0 {
			time.Sleep(m.DeltaDelay)
		}
		chunk := map[string]any{
			"id": "chatcmpl-mock",
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]any{"content": delta}},
			},
		}
		data, _ := json.Marshal(chunk)
		emit(string(data))
	}

	if m.FailAfter >= 0 && m.FailAfter >= len(m.Deltas) {
		emit(fmt.Sprintf(`{"error":{"message":%q}}`, m.FailMsg))
		return
	}
	emit("[DONE]")
}
