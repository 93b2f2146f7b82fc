package ai

import (
	"context"
)

// Message roles on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn of conversation history in provider
// wire format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries everything a provider needs to produce a response.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []ChatMessage
	MaxTokens    int
	Temperature  float64
	TopK         int
	TopP         float64
}

// Usage reports token accounting for a completed response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a full, non-streaming provider response.
type Response struct {
	Text  string `json:"text"`
	Usage *Usage `json:"usage,omitempty"`
}

// Provider is the narrow interface over a generative-AI collaborator.
type Provider interface {
	// Complete sends the request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream sends the request and returns a channel of incremental
	// chunks. The channel is closed when the response ends.
	Stream(ctx context.Context, req Request) (Stream, error)

	// Title produces a short conversation title from the first user
	// message.
	Title(ctx context.Context, firstMessage string) (string, error)

	// Model returns the model identifier requests are sent to.
	Model() string
}
