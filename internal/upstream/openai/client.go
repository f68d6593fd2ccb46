// Package openai talks to an OpenAI-compatible chat-completions endpoint.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/embedchat/widget-gateway/internal/upstream"
)

// Client sends chat-completions requests to the upstream service.
type Client struct {
	// completionsURL is the full URL of the chat-completions endpoint. If the
	// configured base URL does not already end with "/v1/chat/completions"
	// the suffix is appended, so callers can pass either a host or the full
	// endpoint URL.
	completionsURL string
	apiKey         string
	httpClient     *http.Client
	// streamTransport is shared with streaming requests, which carry no
	// client timeout (the request context owns cancellation).
	streamTransport http.RoundTripper
}

// NewClient constructs a Client for the given base URL, API key, and
// blocking-request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	completionsURL := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(completionsURL, "/v1/chat/completions") {
		completionsURL += "/v1/chat/completions"
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}

	return &Client{
		completionsURL: completionsURL,
		apiKey:         apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		streamTransport: transport,
	}
}

// Complete sends a blocking completion request and returns the first
// choice's text content. An empty string with nil error means the upstream
// produced no content; the caller decides what to substitute.
func (c *Client) Complete(ctx context.Context, req *upstream.CompletionRequest) (string, error) {
	resp, err := c.send(ctx, c.httpClient, buildPayload(req, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil
	}
	return result.Choices[0].Message.Content, nil
}

// Stream opens a streaming completion and returns a channel of text deltas
// in arrival order. The channel closes when the upstream finishes; the HTTP
// response body is released when the consumer's ctx is cancelled or the
// stream ends.
func (c *Client) Stream(ctx context.Context, req *upstream.CompletionRequest) (<-chan upstream.Delta, error) {
	// No client timeout on streaming requests; ctx carries the deadline.
	streamClient := &http.Client{Transport: c.streamTransport}
	resp, err := c.send(ctx, streamClient, buildPayload(req, true))
	if err != nil {
		return nil, err
	}

	ch := make(chan upstream.Delta, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		readStream(ctx, resp.Body, ch)
	}()
	return ch, nil
}

func (c *Client) send(ctx context.Context, client *http.Client, payload *ChatCompletionRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, errors.New(upstreamErrorMessage(resp.StatusCode, raw))
	}
	return resp, nil
}

// readStream parses SSE lines into deltas until [DONE], EOF, or failure.
// Sends race against ctx so the goroutine exits once the consumer is gone.
func readStream(ctx context.Context, body io.Reader, ch chan<- upstream.Delta) {
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			sendDelta(ctx, ch, upstream.Delta{Err: fmt.Errorf("decode stream chunk: %w", err)})
			return
		}
		if chunk.Error != nil {
			sendDelta(ctx, ch, upstream.Delta{Err: errors.New(chunk.Error.Message)})
			return
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			// Role-only preamble chunks and finish markers carry no content.
			continue
		}
		if !sendDelta(ctx, ch, upstream.Delta{Text: text}) {
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		sendDelta(ctx, ch, upstream.Delta{Err: fmt.Errorf("read stream: %w", err)})
	}
}

func sendDelta(ctx context.Context, ch chan<- upstream.Delta, d upstream.Delta) bool {
	select {
	case ch <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

func buildPayload(req *upstream.CompletionRequest, stream bool) *ChatCompletionRequest {
	payload := &ChatCompletionRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
	if supportsTemperature(req.Model) {
		t := req.Temperature
		payload.Temperature = &t
	}
	return payload
}

// supportsTemperature reports whether the model accepts an explicit
// temperature. Reasoning-model families reject the field outright.
func supportsTemperature(model string) bool {
	return !strings.HasPrefix(model, "o1") && !strings.HasPrefix(model, "o3")
}

// upstreamErrorMessage prefers the upstream's own error text when the body
// parses, falling back to the raw body, then to the bare status.
func upstreamErrorMessage(status int, raw []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return fmt.Sprintf("upstream returned status %d", status)
}
