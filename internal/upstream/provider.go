// Package upstream abstracts the LLM completion service behind the gateway.
package upstream

import "context"

// Message roles, in the order they may appear in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidRole reports whether role is one of the fixed message roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single turn of conversation history. Order is meaningful and
// preserved end-to-end.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a fully validated request ready for a provider.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Delta is one incremental fragment of model output. A Delta with Err set
// terminates the stream; the channel is closed after normal completion.
type Delta struct {
	Text string
	Err  error
}

// Provider is the upstream completion service consumed as a black box.
//
// Stream returns a channel of deltas in upstream arrival order. The channel
// closes when the upstream sequence ends normally; a Delta carrying Err is
// the last element on failure. Cancelling ctx releases the subscription and
// stops the producing goroutine.
type Provider interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
	Stream(ctx context.Context, req *CompletionRequest) (<-chan Delta, error)
}
