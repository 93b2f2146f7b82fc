package ai

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// MockModelID identifies responses produced by the mock path.
const MockModelID = "chatly-mock"

// mockOpeners are the canned response openers the mock picks from.
var mockOpeners = []string{
	"That's an interesting question! Let me think about that for a moment.",
	"I understand what you're asking. Here's what I would suggest:",
	"Great point! Based on that, I'd recommend the following approach:",
	"That's a thoughtful question. From my perspective, I believe:",
	"I can help you with that! Here's what you should consider:",
}

// MockProvider is the deterministic local substitute for the AI
// collaborator, used when no credential is configured. It simulates
// request latency and word-by-word streaming through the same chunk
// contract as a live provider.
type MockProvider struct {
	mu   sync.Mutex
	rand *rand.Rand

	// Delay knobs, shrunk in tests.
	minLatency time.Duration
	maxLatency time.Duration
	wordDelay  time.Duration
}

// NewMockProvider creates a mock provider seeded for reproducible
// opener selection.
func NewMockProvider(seed int64) *MockProvider {
	return &MockProvider{
		rand:       rand.New(rand.NewSource(seed)),
		minLatency: time.Second,
		maxLatency: 3 * time.Second,
		wordDelay:  100 * time.Millisecond,
	}
}

// SetDelays overrides the simulated latency and per-word streaming
// delay.
func (p *MockProvider) SetDelays(minLatency, maxLatency, wordDelay time.Duration) {
	p.mu.Lock()
	p.minLatency = minLatency
	p.maxLatency = maxLatency
	p.wordDelay = wordDelay
	p.mu.Unlock()
}

// Model implements Provider.
func (p *MockProvider) Model() string { return MockModelID }

// Complete implements Provider. It sleeps for the simulated latency
// and returns the canned response.
func (p *MockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	text := p.respond(req)
	if err := sleepCtx(ctx, p.latency()); err != nil {
		return nil, err
	}

	last := lastUserMessage(req.Messages)
	return &Response{
		Text: text,
		Usage: &Usage{
			PromptTokens:     len(strings.Fields(last)),
			CompletionTokens: len(strings.Fields(text)),
			TotalTokens:      len(strings.Fields(last)) + len(strings.Fields(text)),
		},
	}, nil
}

// Stream implements Provider by delivering the canned response
// word-by-word with a small delay per word.
func (p *MockProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	text := p.respond(req)

	p.mu.Lock()
	delay := p.wordDelay
	p.mu.Unlock()

	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)

		words := strings.Split(text, " ")
		for i, word := range words {
			chunk := word
			if i > 0 {
				chunk = " " + word
			}
			select {
			case out <- TextChunk{Text: chunk}:
			case <-ctx.Done():
				out <- ErrorChunk{Err: ctx.Err()}
				return
			}
			if err := sleepCtx(ctx, delay); err != nil {
				out <- ErrorChunk{Err: err}
				return
			}
		}
		out <- UsageChunk{CompletionTokens: len(words)}
	}()
	return out, nil
}

// Title implements Provider with keyword matching on the first
// message.
func (p *MockProvider) Title(_ context.Context, firstMessage string) (string, error) {
	keywords := strings.ToLower(firstMessage)
	switch {
	case strings.Contains(keywords, "help"), strings.Contains(keywords, "question"):
		return "Getting Help", nil
	case strings.Contains(keywords, "code"), strings.Contains(keywords, "programming"):
		return "Coding Question", nil
	case strings.Contains(keywords, "write"), strings.Contains(keywords, "article"):
		return "Writing Task", nil
	case strings.Contains(keywords, "explain"), strings.Contains(keywords, "how"):
		return "Explanation Needed", nil
	case strings.Contains(keywords, "idea"), strings.Contains(keywords, "brainstorm"):
		return "Brainstorming", nil
	}
	return "New Chat", nil
}

// respond builds the canned response: a pseudo-random opener plus a
// truncated echo of the last user message and a follow-up prompt.
func (p *MockProvider) respond(req Request) string {
	p.mu.Lock()
	opener := mockOpeners[p.rand.Intn(len(mockOpeners))]
	p.mu.Unlock()

	last := lastUserMessage(req.Messages)
	echo := last
	if runes := []rune(echo); len(runes) > 50 {
		echo = string(runes[:50])
	}
	return fmt.Sprintf("%s\n\nRegarding \"%s...\" - I think there are several ways to approach this. "+
		"Would you like me to elaborate on any specific aspect?", opener, echo)
}

func (p *MockProvider) latency() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.maxLatency <= p.minLatency {
		return p.minLatency
	}
	return p.minLatency + time.Duration(p.rand.Int63n(int64(p.maxLatency-p.minLatency)))
}

func lastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
