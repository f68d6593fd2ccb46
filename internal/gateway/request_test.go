package gateway

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/embedchat/widget-gateway/internal/config"
	"github.com/embedchat/widget-gateway/internal/upstream"
)

func messagesModeHandler() *handler {
	return &handler{cfg: &config.Config{
		RequestMode: "messages",
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   512,
	}}
}

func promptModeHandler() *handler {
	return &handler{cfg: &config.Config{
		RequestMode:  "prompt",
		Model:        "gpt-4o-mini",
		Temperature:  0.7,
		MaxTokens:    512,
		SystemPrompt: "You are a test assistant.",
	}}
}

func parseBody(t *testing.T, h *handler, body string) (*upstream.CompletionRequest, error) {
	t.Helper()
	r := httptest.NewRequest("POST", "/generate", strings.NewReader(body))
	return h.parseRequest(r)
}

func TestParseRequest_MessagesMode(t *testing.T) {
	h := messagesModeHandler()

	req, err := parseBody(t, h, `{"messages":[
		{"role":"system","content":"Be brief."},
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"hello"},
		{"role":"user","content":"why?"}
	]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(req.Messages))
	}
	// Order must survive validation untouched.
	wantRoles := []string{"system", "user", "assistant", "user"}
	for i, want := range wantRoles {
		if req.Messages[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, req.Messages[i].Role, want)
		}
	}
	if req.Model != "gpt-4o-mini" || req.MaxTokens != 512 {
		t.Errorf("config defaults not applied: %+v", req)
	}
}

func TestParseRequest_MessagesModeOverrides(t *testing.T) {
	h := messagesModeHandler()

	req, err := parseBody(t, h, `{"messages":[{"role":"user","content":"hi"}],"model":"gpt-4o","temperature":0.2,"max_tokens":64}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Model != "gpt-4o" {
		t.Errorf("model override ignored: %q", req.Model)
	}
	if req.Temperature != 0.2 {
		t.Errorf("temperature override ignored: %v", req.Temperature)
	}
	if req.MaxTokens != 64 {
		t.Errorf("max_tokens override ignored: %d", req.MaxTokens)
	}
}

func TestParseRequest_MessagesModeRejects(t *testing.T) {
	h := messagesModeHandler()

	for _, body := range []string{
		`{}`,
		`{"messages":[]}`,
		`{"messages":[{"role":"robot","content":"hi"}]}`,
		`{"messages":[{"role":"user","content":42}]}`,
		`not json`,
	} {
		_, err := parseBody(t, h, body)
		if err == nil {
			t.Errorf("body %q should not validate", body)
			continue
		}
		if err.Error() != "messages array is required" {
			t.Errorf("body %q: error = %q, want %q", body, err.Error(), "messages array is required")
		}
	}
}

func TestParseRequest_PromptMode(t *testing.T) {
	h := promptModeHandler()

	req, err := parseBody(t, h, `{"prompt":"hello"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected exactly 2 synthesized messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != upstream.RoleSystem || req.Messages[0].Content != "You are a test assistant." {
		t.Errorf("first message should be the system preamble, got %+v", req.Messages[0])
	}
	if req.Messages[1].Role != upstream.RoleUser || req.Messages[1].Content != "hello" {
		t.Errorf("second message should be the user prompt, got %+v", req.Messages[1])
	}
}

func TestParseRequest_PromptModeRejects(t *testing.T) {
	h := promptModeHandler()

	for _, body := range []string{`{}`, `{"prompt":""}`, `{"prompt":7}`, ``} {
		_, err := parseBody(t, h, body)
		if err == nil {
			t.Errorf("body %q should not validate", body)
			continue
		}
		if err.Error() != "Missing 'prompt' string in body" {
			t.Errorf("body %q: error = %q, want %q", body, err.Error(), "Missing 'prompt' string in body")
		}
	}
}
