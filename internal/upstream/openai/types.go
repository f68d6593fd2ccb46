package openai

import "github.com/embedchat/widget-gateway/internal/upstream"

// ChatCompletionRequest is the body sent to POST /v1/chat/completions.
// Temperature is a pointer because some model families reject any explicit
// temperature and the field must be omitted entirely for them.
type ChatCompletionRequest struct {
	Model       string             `json:"model"`
	Messages    []upstream.Message `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// ChatCompletionResponse is the blocking response format.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Choice wraps a single completion result.
type Choice struct {
	Index        int              `json:"index"`
	Message      upstream.Message `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

// StreamChunk is one SSE data object in streaming mode. Some
// OpenAI-compatible servers deliver failures as an in-band error object
// instead of dropping the connection.
type StreamChunk struct {
	ID      string         `json:"id"`
	Choices []StreamChoice `json:"choices"`
	Error   *APIError      `json:"error,omitempty"`
}

// StreamChoice is a single choice delta in a stream chunk.
type StreamChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta carries incremental content in a stream chunk.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// APIError is the error object upstream returns in non-2xx bodies and
// in-band stream chunks.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

type errorResponse struct {
	Error *APIError `json:"error"`
}
