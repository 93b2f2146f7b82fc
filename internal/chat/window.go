package chat

// SyntheticSystemID marks the message substituted for history when a
// conversation is empty but has a system prompt configured. It lets
// callers distinguish real history from the synthetic instruction
// carrier.
const SyntheticSystemID = "system-prompt"

// WindowManager decides which slice of a conversation's history is
// eligible to be sent to the AI collaborator. The window limit is
// independent from the store's retention limit; the two knobs must not
// be conflated.
type WindowManager struct {
	counter *TokenCounter
	limit   int
}

// NewWindowManager creates a window manager with the given message
// limit. A limit of zero or below falls back to DefaultContextLimit.
func NewWindowManager(limit int) *WindowManager {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	return &WindowManager{
		counter: NewTokenCounter(),
		limit:   limit,
	}
}

// Limit returns the configured window size.
func (w *WindowManager) Limit() int { return w.limit }

// Window returns the most recent messages of the conversation,
// verbatim, up to the manager's limit. An empty conversation with a
// configured system prompt yields a single synthetic message carrying
// the prompt so the first request still carries instructions.
func (w *WindowManager) Window(conv *Conversation) []Message {
	return contextWindow(conv, w.limit)
}

// FitTokenBudget keeps the most recent whole messages whose estimated
// token total stays within budget. Messages are never truncated
// mid-text. A budget of zero or below disables trimming.
func (w *WindowManager) FitTokenBudget(messages []Message, model string, budget int) []Message {
	if budget <= 0 || len(messages) == 0 {
		return messages
	}

	total := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		tokens := w.counter.CountTokens(messages[i].Text, model)
		if total+tokens > budget {
			break
		}
		total += tokens
		start = i
	}
	return messages[start:]
}

// EstimateTokens exposes the manager's token estimator for message
// accounting.
func (w *WindowManager) EstimateTokens(text, model string) int {
	return w.counter.CountTokens(text, model)
}

// contextWindow implements the shared window contract: the last limit
// messages, or the synthetic system message for an empty conversation
// with a prompt — never both.
func contextWindow(conv *Conversation, limit int) []Message {
	if limit <= 0 {
		limit = DefaultContextLimit
	}

	if len(conv.Messages) == 0 {
		if conv.Context.SystemPrompt == "" {
			return nil
		}
		return []Message{{
			ID:             SyntheticSystemID,
			Text:           conv.Context.SystemPrompt,
			Sender:         SenderAI,
			Timestamp:      conv.CreatedAt,
			ConversationID: conv.ID,
		}}
	}

	start := len(conv.Messages) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(conv.Messages)-start)
	copy(out, conv.Messages[start:])
	return out
}
