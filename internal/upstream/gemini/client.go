// Package gemini backs the upstream Provider interface with the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/embedchat/widget-gateway/internal/upstream"
)

// Client adapts the genai SDK to the upstream.Provider contract.
type Client struct {
	client *genai.Client
}

// NewClient constructs a Client using the Gemini developer API backend.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

// Complete sends a blocking generation request and returns the reply text.
func (c *Client) Complete(ctx context.Context, req *upstream.CompletionRequest) (string, error) {
	contents, cfg := translate(req)
	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	return resp.Text(), nil
}

// Stream opens a streaming generation and forwards each chunk's text as a
// delta. Gemini surfaces open failures on the first iteration, so they
// arrive in-band rather than as an open error.
func (c *Client) Stream(ctx context.Context, req *upstream.CompletionRequest) (<-chan upstream.Delta, error) {
	contents, cfg := translate(req)

	ch := make(chan upstream.Delta, 16)
	go func() {
		defer close(ch)
		for resp, err := range c.client.Models.GenerateContentStream(ctx, req.Model, contents, cfg) {
			if err != nil {
				if ctx.Err() == nil {
					select {
					case ch <- upstream.Delta{Err: fmt.Errorf("gemini stream: %w", err)}:
					case <-ctx.Done():
					}
				}
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case ch <- upstream.Delta{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// translate maps the gateway's message sequence onto Gemini contents.
// System messages become the system instruction; assistant turns map to the
// model role.
func translate(req *upstream.CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case upstream.RoleSystem:
			system = append(system, m.Content)
		case upstream.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n"), genai.RoleUser)
	}
	return contents, cfg
}
