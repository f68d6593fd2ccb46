package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/embedchat/widget-gateway/internal/upstream"
)

// Validation error texts are part of the widget client's contract.
var (
	errMessagesRequired = errors.New("messages array is required")
	errMissingPrompt    = errors.New("Missing 'prompt' string in body")
)

// generateRequest is the inbound body for both endpoints. Which fields are
// honored depends on the deployment's request mode.
type generateRequest struct {
	Messages    []upstream.Message `json:"messages"`
	Prompt      string             `json:"prompt"`
	Model       string             `json:"model"`
	Temperature *float64           `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

type generateResponse struct {
	Reply string `json:"reply"`
}

// parseRequest validates the body against the deployment's request mode and
// returns a CompletionRequest with config defaults filled in. It never
// contacts the upstream.
func (h *handler) parseRequest(r *http.Request) (*upstream.CompletionRequest, error) {
	var body generateRequest
	decodeErr := json.NewDecoder(r.Body).Decode(&body)

	req := &upstream.CompletionRequest{
		Model:       h.cfg.Model,
		Temperature: h.cfg.Temperature,
		MaxTokens:   h.cfg.MaxTokens,
	}

	if h.cfg.RequestMode == "prompt" {
		if decodeErr != nil || body.Prompt == "" {
			return nil, errMissingPrompt
		}
		req.Messages = []upstream.Message{
			{Role: upstream.RoleSystem, Content: h.cfg.SystemPrompt},
			{Role: upstream.RoleUser, Content: body.Prompt},
		}
		return req, nil
	}

	// Messages mode. A decode failure, an empty list, or a bad role all mean
	// the body does not contain the required messages array.
	if decodeErr != nil || len(body.Messages) == 0 {
		return nil, errMessagesRequired
	}
	for _, m := range body.Messages {
		if !upstream.ValidRole(m.Role) {
			return nil, errMessagesRequired
		}
	}
	req.Messages = body.Messages

	if body.Model != "" {
		req.Model = body.Model
	}
	if body.Temperature != nil {
		req.Temperature = *body.Temperature
	}
	if body.MaxTokens > 0 {
		req.MaxTokens = body.MaxTokens
	}
	return req, nil
}
