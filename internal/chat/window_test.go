package chat

import (
	"fmt"
	"testing"
)

func seedConversation(n int) *Conversation {
	conv := &Conversation{ID: "conv", Context: ContextConfig{MessageLimit: DefaultMessageLimit}}
	for i := 0; i < n; i++ {
		conv.Messages = append(conv.Messages, Message{
			ID:   fmt.Sprintf("msg-%d", i),
			Text: fmt.Sprintf("message %d", i),
		})
	}
	return conv
}

func TestWindow(t *testing.T) {
	t.Run("fewer messages than limit", func(t *testing.T) {
		w := NewWindowManager(10)
		got := w.Window(seedConversation(4))
		if len(got) != 4 {
			t.Fatalf("expected 4 messages, got %d", len(got))
		}
	})

	t.Run("keeps only the newest", func(t *testing.T) {
		w := NewWindowManager(3)
		got := w.Window(seedConversation(10))
		if len(got) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(got))
		}
		if got[0].ID != "msg-7" || got[2].ID != "msg-9" {
			t.Errorf("expected newest tail, got %s..%s", got[0].ID, got[2].ID)
		}
	})

	t.Run("zero limit falls back to default", func(t *testing.T) {
		w := NewWindowManager(0)
		if w.Limit() != DefaultContextLimit {
			t.Fatalf("expected default limit %d, got %d", DefaultContextLimit, w.Limit())
		}
		got := w.Window(seedConversation(DefaultContextLimit + 5))
		if len(got) != DefaultContextLimit {
			t.Fatalf("expected %d messages, got %d", DefaultContextLimit, len(got))
		}
	})

	t.Run("empty conversation without prompt", func(t *testing.T) {
		w := NewWindowManager(10)
		if got := w.Window(seedConversation(0)); len(got) != 0 {
			t.Fatalf("expected empty window, got %d", len(got))
		}
	})

	t.Run("empty conversation with prompt yields synthetic message", func(t *testing.T) {
		w := NewWindowManager(10)
		conv := seedConversation(0)
		conv.Context.SystemPrompt = "be helpful"

		got := w.Window(conv)
		if len(got) != 1 {
			t.Fatalf("expected single synthetic message, got %d", len(got))
		}
		if got[0].ID != SyntheticSystemID || got[0].Text != "be helpful" {
			t.Errorf("unexpected synthetic message %+v", got[0])
		}
	})

	t.Run("synthetic message never joins real history", func(t *testing.T) {
		w := NewWindowManager(10)
		conv := seedConversation(2)
		conv.Context.SystemPrompt = "be helpful"

		got := w.Window(conv)
		if len(got) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(got))
		}
		for _, m := range got {
			if m.ID == SyntheticSystemID {
				t.Error("synthetic message mixed into history")
			}
		}
	})
}

func TestFitTokenBudget(t *testing.T) {
	w := NewWindowManager(10)
	messages := []Message{
		{Text: "aaaa aaaa aaaa aaaa"}, // ~4 tokens under gpt heuristic
		{Text: "bbbb bbbb bbbb bbbb"},
		{Text: "cccc cccc cccc cccc"},
	}

	t.Run("keeps newest whole messages", func(t *testing.T) {
		got := w.FitTokenBudget(messages, "gpt-3.5-turbo", 9)
		if len(got) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(got))
		}
		if got[0].Text != messages[1].Text {
			t.Errorf("wrong tail kept: %q", got[0].Text)
		}
	})

	t.Run("zero budget disables trimming", func(t *testing.T) {
		got := w.FitTokenBudget(messages, "gpt-3.5-turbo", 0)
		if len(got) != len(messages) {
			t.Fatalf("expected all messages, got %d", len(got))
		}
	})

	t.Run("budget below one message keeps none", func(t *testing.T) {
		got := w.FitTokenBudget(messages, "gpt-3.5-turbo", 1)
		if len(got) != 0 {
			t.Fatalf("expected 0 messages, got %d", len(got))
		}
	})
}

func TestCountTokens(t *testing.T) {
	tc := NewTokenCounter()

	tests := []struct {
		name  string
		text  string
		model string
		want  int
	}{
		{"gpt chars over four", "aaaa aaaa aaaa aaaa", "gpt-3.5-turbo", 4},
		{"gemini same heuristic", "aaaa aaaa aaaa aaaa", "gemini-1.5-flash", 4},
		{"claude denser", "aaaaaaaaaa", "claude-3-opus", 2},
		{"unknown model counts words", "one two three", "mystery", 3},
		{"empty text", "", "gpt-4", 0},
		{"short text never zero", "hi", "gpt-4", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tc.CountTokens(tt.text, tt.model); got != tt.want {
				t.Errorf("CountTokens(%q, %q) = %d, want %d", tt.text, tt.model, got, tt.want)
			}
		})
	}

	t.Run("cache returns stable results", func(t *testing.T) {
		first := tc.CountTokens("repeatable input", "gpt-4")
		second := tc.CountTokens("repeatable input", "gpt-4")
		if first != second {
			t.Errorf("cache inconsistency: %d vs %d", first, second)
		}
	})
}

func TestCountMessages(t *testing.T) {
	tc := NewTokenCounter()
	messages := []Message{{Text: "one two three"}, {Text: "four five"}}

	// word-count heuristic plus 4 overhead each
	if got := tc.CountMessages(messages, "mystery"); got != 13 {
		t.Errorf("CountMessages = %d, want 13", got)
	}
}
