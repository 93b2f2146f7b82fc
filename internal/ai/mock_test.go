package ai

import (
	"context"
	"strings"
	"testing"
	"time"
)

func fastMock(seed int64) *MockProvider {
	p := NewMockProvider(seed)
	p.SetDelays(0, 0, 0)
	return p
}

func TestMockComplete(t *testing.T) {
	t.Run("contains opener and echo", func(t *testing.T) {
		p := fastMock(1)
		resp, err := p.Complete(context.Background(), Request{
			Messages: []ChatMessage{{Role: RoleUser, Content: "how do I test goroutines?"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(resp.Text, `Regarding "how do I test goroutines?..."`) {
			t.Errorf("echo missing from response: %q", resp.Text)
		}
		opener := strings.SplitN(resp.Text, "\n\n", 2)[0]
		found := false
		for _, o := range mockOpeners {
			if o == opener {
				found = true
			}
		}
		if !found {
			t.Errorf("unknown opener %q", opener)
		}
	})

	t.Run("echo truncated to 50 chars", func(t *testing.T) {
		p := fastMock(1)
		long := strings.Repeat("x", 80)
		resp, err := p.Complete(context.Background(), Request{
			Messages: []ChatMessage{{Role: RoleUser, Content: long}},
		})
		if err != nil {
			t.Fatal(err)
		}
		want := `Regarding "` + strings.Repeat("x", 50) + `..."`
		if !strings.Contains(resp.Text, want) {
			t.Errorf("expected truncated echo in %q", resp.Text)
		}
	})

	t.Run("echoes last user message not last message", func(t *testing.T) {
		p := fastMock(1)
		resp, err := p.Complete(context.Background(), Request{
			Messages: []ChatMessage{
				{Role: RoleUser, Content: "the real question"},
				{Role: RoleAssistant, Content: "a previous reply"},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(resp.Text, "the real question") {
			t.Errorf("expected last user message echoed: %q", resp.Text)
		}
	})

	t.Run("deterministic under a fixed seed", func(t *testing.T) {
		req := Request{Messages: []ChatMessage{{Role: RoleUser, Content: "hello"}}}
		a, _ := fastMock(42).Complete(context.Background(), req)
		b, _ := fastMock(42).Complete(context.Background(), req)
		if a.Text != b.Text {
			t.Errorf("same seed produced different responses:\n%q\n%q", a.Text, b.Text)
		}
	})

	t.Run("reports usage", func(t *testing.T) {
		p := fastMock(1)
		resp, _ := p.Complete(context.Background(), Request{
			Messages: []ChatMessage{{Role: RoleUser, Content: "one two three"}},
		})
		if resp.Usage == nil || resp.Usage.PromptTokens != 3 {
			t.Errorf("unexpected usage %+v", resp.Usage)
		}
	})
}

func TestMockStream(t *testing.T) {
	t.Run("chunks reassemble the full response", func(t *testing.T) {
		p := fastMock(7)
		req := Request{Messages: []ChatMessage{{Role: RoleUser, Content: "stream this"}}}

		full, err := p.Complete(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}

		stream, err := fastMock(7).Stream(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := Drain(context.Background(), stream)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Text != full.Text {
			t.Errorf("streamed text diverged:\n%q\n%q", resp.Text, full.Text)
		}
		if resp.Usage == nil || resp.Usage.CompletionTokens == 0 {
			t.Error("expected usage chunk at end of stream")
		}
	})

	t.Run("cancellation aborts the stream", func(t *testing.T) {
		p := NewMockProvider(1)
		p.SetDelays(0, 0, 50*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		stream, err := p.Stream(ctx, Request{
			Messages: []ChatMessage{{Role: RoleUser, Content: "cancel me"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		cancel()

		if _, err := Drain(context.Background(), stream); err == nil {
			t.Error("expected an error from the cancelled stream")
		}
	})
}

func TestMockTitle(t *testing.T) {
	p := fastMock(1)
	tests := []struct {
		message string
		want    string
	}{
		{"can you help me with something", "Getting Help"},
		{"review my code please", "Coding Question"},
		{"write an essay about rivers", "Writing Task"},
		{"explain monads", "Explanation Needed"},
		{"how does DNS work", "Explanation Needed"},
		{"brainstorm startup ideas", "Brainstorming"},
		{"good morning", "New Chat"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got, err := p.Title(context.Background(), tt.message)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Title(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}
