package chat

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// TokenCounter estimates token counts for message accounting and window
// budgeting. Estimates are heuristic; when a provider reports real
// usage, that usage wins.
type TokenCounter struct {
	mu    sync.Mutex
	cache map[string]int
}

// NewTokenCounter creates a token counter with an empty cache.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{cache: make(map[string]int)}
}

// CountTokens estimates the token count of text for the given model.
func (tc *TokenCounter) CountTokens(text, model string) int {
	key := fmt.Sprintf("%s:%x", model, fnvHash(text))

	tc.mu.Lock()
	if n, ok := tc.cache[key]; ok {
		tc.mu.Unlock()
		return n
	}
	tc.mu.Unlock()

	var n int
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "gpt"), strings.Contains(lower, "gemini"):
		n = countByChars(text, 4)
	case strings.Contains(lower, "claude"):
		// Claude packs slightly tighter, roughly 3.5 chars per token.
		n = utf8.RuneCountInString(normalize(text)) * 10 / 35
		if n == 0 && text != "" {
			n = 1
		}
	default:
		n = len(strings.Fields(text))
	}

	tc.mu.Lock()
	tc.cache[key] = n
	tc.mu.Unlock()
	return n
}

// CountMessages estimates the total for a message slice, including a
// small per-message formatting overhead.
func (tc *TokenCounter) CountMessages(messages []Message, model string) int {
	const overhead = 4
	total := 0
	for _, m := range messages {
		total += tc.CountTokens(m.Text, model) + overhead
	}
	return total
}

func countByChars(text string, charsPerToken int) int {
	chars := utf8.RuneCountInString(normalize(text))
	if chars == 0 {
		return 0
	}
	n := chars / charsPerToken
	if n == 0 {
		n = 1
	}
	return n
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// fnvHash is a cheap non-cryptographic hash for cache keys.
func fnvHash(s string) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	var h uint64 = offset
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return h
}
