package chat

import (
	"time"
)

// Defaults applied when a conversation is created without explicit
// configuration.
const (
	DefaultTitle        = "New Chat"
	DefaultMessageLimit = 50
	DefaultContextLimit = 10

	// Titles derived from the first user message are truncated to this
	// many characters before an ellipsis is appended.
	titleMaxLen = 30
)

// Sender identifies the author of a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// MessageMetadata carries descriptive information about a message.
// It is never required for ordering or content correctness.
type MessageMetadata struct {
	TokenCount  int    `json:"tokenCount,omitempty"`
	Model       string `json:"model,omitempty"`
	IsError     bool   `json:"isError,omitempty"`
	IsStreaming bool   `json:"isStreaming,omitempty"`
	StreamID    string `json:"streamId,omitempty"`
	PartialText string `json:"partialText,omitempty"`
}

// Message is a single entry in a conversation. Messages are kept in
// strict insertion order; no reordering operation exists.
type Message struct {
	ID             string           `json:"id"`
	Text           string           `json:"text"`
	Sender         Sender           `json:"sender"`
	Timestamp      time.Time        `json:"timestamp"`
	ConversationID string           `json:"conversationId"`
	Metadata       *MessageMetadata `json:"metadata,omitempty"`
}

// ModelConfig holds per-conversation generation parameters.
type ModelConfig struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"topK"`
	TopP        float64 `json:"topP"`
	MaxTokens   int     `json:"maxTokens"`
}

// TokenUsage accumulates token counts for a conversation. Fields are
// monotonically non-decreasing; they are incremented only when an
// appended message carries a token count.
type TokenUsage struct {
	Total      int `json:"total"`
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
}

// ContextConfig holds the conversation-level AI context settings.
type ContextConfig struct {
	SystemPrompt string      `json:"systemPrompt,omitempty"`
	ModelConfig  ModelConfig `json:"modelConfig"`
	MessageLimit int         `json:"messageLimit"`
	TokenUsage   TokenUsage  `json:"tokenUsage"`
}

// Conversation is a titled, ordered thread of messages with its own
// configuration and usage accounting.
type Conversation struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Messages    []Message     `json:"messages"`
	LastMessage string        `json:"lastMessage,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	IsPinned    bool          `json:"isPinned"`
	Context     ContextConfig `json:"context"`
}

// MessageUpdate describes a partial update to an existing message.
// Nil fields are left untouched.
type MessageUpdate struct {
	Text     *string
	Metadata *MessageMetadata
}

// ContextUpdate describes a partial update to a conversation's context
// configuration. Nil fields are left untouched.
type ContextUpdate struct {
	SystemPrompt *string
	ModelConfig  *ModelConfig
	MessageLimit *int
}

// clone returns a deep copy so callers cannot mutate store state.
func (c *Conversation) clone() Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = m
		if m.Metadata != nil {
			md := *m.Metadata
			out.Messages[i].Metadata = &md
		}
	}
	return out
}
