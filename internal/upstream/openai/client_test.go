package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/embedchat/widget-gateway/internal/upstream"
)

func testRequest(model string) *upstream.CompletionRequest {
	return &upstream.CompletionRequest{
		Model:       model,
		Messages:    []upstream.Message{{Role: upstream.RoleUser, Content: "hi"}},
		Temperature: 0.3,
		MaxTokens:   64,
	}
}

func TestComplete(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"Hello!"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", 5*time.Second)
	reply, err := c.Complete(context.Background(), testRequest("gpt-4o-mini"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Hello!" {
		t.Errorf("reply = %q, want %q", reply, "Hello!")
	}
	if _, ok := received["temperature"]; !ok {
		t.Error("temperature should be forwarded for standard models")
	}
	if received["stream"] != nil && received["stream"] != false {
		t.Errorf("blocking request must not set stream, got %v", received["stream"])
	}
}

func TestComplete_TemperatureOmittedForReasoningModels(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", 5*time.Second)
	if _, err := c.Complete(context.Background(), testRequest("o1-mini")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := received["temperature"]; ok {
		t.Error("temperature must be omitted for o1 models")
	}
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"cmpl-1","choices":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", 5*time.Second)
	reply, err := c.Complete(context.Background(), testRequest("gpt-4o-mini"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "" {
		t.Errorf("expected empty reply for empty choices, got %q", reply)
	}
}

func TestComplete_UpstreamErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached","type":"requests"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", 5*time.Second)
	_, err := c.Complete(context.Background(), testRequest("gpt-4o-mini"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != "Rate limit reached" {
		t.Errorf("error = %q, want the upstream's own message", err.Error())
	}
}

func writeSSE(t *testing.T, w http.ResponseWriter, lines ...string) {
	t.Helper()
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for _, line := range lines {
		fmt.Fprintf(w, "%s\n\n", line)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func collect(t *testing.T, ch <-chan upstream.Delta) []upstream.Delta {
	t.Helper()
	var out []upstream.Delta
	for {
		select {
		case d, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, d)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for deltas")
		}
	}
}

func TestStream_DeltasInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(t, w,
			`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
			`data: {"choices":[{"delta":{"content":"lo"}}]}`,
			`data: [DONE]`,
		)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", 5*time.Second)
	ch, err := c.Stream(context.Background(), testRequest("gpt-4o-mini"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := collect(t, ch)
	if len(got) != 2 {
		t.Fatalf("expected 2 deltas, got %d: %+v", len(got), got)
	}
	if got[0].Text != "Hel" || got[1].Text != "lo" {
		t.Errorf("deltas out of order: %+v", got)
	}
}

func TestStream_InBandError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(t, w,
			`data: {"choices":[{"delta":{"content":"partial"}}]}`,
			`data: {"error":{"message":"The server is overloaded"}}`,
		)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", 5*time.Second)
	ch, err := c.Stream(context.Background(), testRequest("gpt-4o-mini"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := collect(t, ch)
	if len(got) != 2 {
		t.Fatalf("expected a delta then an error, got %+v", got)
	}
	if got[0].Text != "partial" || got[0].Err != nil {
		t.Errorf("first delta wrong: %+v", got[0])
	}
	if got[1].Err == nil || got[1].Err.Error() != "The server is overloaded" {
		t.Errorf("second delta should carry the upstream error, got %+v", got[1])
	}
}

func TestStream_OpenRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-bad", 5*time.Second)
	_, err := c.Stream(context.Background(), testRequest("gpt-4o-mini"))
	if err == nil {
		t.Fatal("expected an open error")
	}
	if err.Error() != "Incorrect API key provided" {
		t.Errorf("error = %q, want the upstream's own message", err.Error())
	}
}

func TestStream_CancelReleasesGoroutine(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(t, w, `data: {"choices":[{"delta":{"content":"first"}}]}`)
		// Hold the stream open until the client goes away.
		select {
		case <-r.Context().Done():
		case <-blocked:
		}
	}))
	defer srv.Close()
	defer close(blocked)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(srv.URL, "sk-test", 5*time.Second)
	ch, err := c.Stream(ctx, testRequest("gpt-4o-mini"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d := <-ch; d.Text != "first" {
		t.Fatalf("unexpected first delta: %+v", d)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// A final read error racing the cancel is fine; the channel must
			// still close right after.
			if _, ok := <-ch; ok {
				t.Error("channel should close after cancellation")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after cancellation")
	}
}
