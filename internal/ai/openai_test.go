package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIComplete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotAuth string
		var gotBody openAIRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewDecoder(r.Body).Decode(&gotBody)
			fmt.Fprint(w, `{"choices":[{"message":{"content":"hello back"}}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)
		}))
		defer server.Close()

		p := NewOpenAIProvider(OpenAIOptions{APIKey: "sk-test", BaseURL: server.URL, ModelID: "gpt-4"})
		resp, err := p.Complete(context.Background(), Request{
			SystemPrompt: "be brief",
			Messages:     []ChatMessage{{Role: RoleUser, Content: "hello"}},
			MaxTokens:    100,
			Temperature:  0.7,
		})
		if err != nil {
			t.Fatal(err)
		}
		if resp.Text != "hello back" {
			t.Errorf("unexpected text %q", resp.Text)
		}
		if resp.Usage == nil || resp.Usage.TotalTokens != 7 {
			t.Errorf("unexpected usage %+v", resp.Usage)
		}
		if gotAuth != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", gotAuth)
		}
		if gotBody.Stream {
			t.Error("non-streaming request had stream=true")
		}
		if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != RoleSystem {
			t.Errorf("system prompt not first in messages: %+v", gotBody.Messages)
		}
	})

	t.Run("non-2xx surfaces status and body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":"rate limited"}`)
		}))
		defer server.Close()

		p := NewOpenAIProvider(OpenAIOptions{BaseURL: server.URL, ModelID: "gpt-4"})
		_, err := p.Complete(context.Background(), Request{
			Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
		})
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "rate limited") {
			t.Errorf("error missing status/body: %v", err)
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[]}`)
		}))
		defer server.Close()

		p := NewOpenAIProvider(OpenAIOptions{BaseURL: server.URL, ModelID: "gpt-4"})
		if _, err := p.Complete(context.Background(), Request{}); err == nil {
			t.Fatal("expected an error for empty choices")
		}
	})
}

func TestOpenAIStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openAIRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("streaming request had stream=false")
		}
		if req.StreamOptions == nil || !req.StreamOptions.IncludeUsage {
			t.Error("stream_options.include_usage not set")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":3,\"completion_tokens\":2}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIOptions{BaseURL: server.URL, ModelID: "gpt-4"})
	stream, err := p.Stream(context.Background(), Request{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := Drain(context.Background(), stream)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "Hello" {
		t.Errorf("unexpected streamed text %q", resp.Text)
	}
	if resp.Usage == nil || resp.Usage.CompletionTokens != 2 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
}

func TestOpenAITitle(t *testing.T) {
	var gotBody openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"  Goroutine Testing Tips \n"}}]}`)
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIOptions{BaseURL: server.URL, ModelID: "gpt-4"})
	title, err := p.Title(context.Background(), "how do I test goroutines?")
	if err != nil {
		t.Fatal(err)
	}
	if title != "Goroutine Testing Tips" {
		t.Errorf("unexpected title %q", title)
	}
	if gotBody.MaxTokens != 20 {
		t.Errorf("expected max_tokens 20, got %d", gotBody.MaxTokens)
	}
	if gotBody.Temperature == nil || *gotBody.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", gotBody.Temperature)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != RoleSystem {
		t.Errorf("unexpected title messages %+v", gotBody.Messages)
	}
}

func TestSSEScanner(t *testing.T) {
	t.Run("data events", func(t *testing.T) {
		input := "data: one\n\ndata: two\n\n"
		s := NewSSEScanner(strings.NewReader(input))

		var events []SSEEvent
		for s.Scan() {
			events = append(events, s.Event())
		}
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].Data != "one" || events[1].Data != "two" {
			t.Errorf("unexpected events %+v", events)
		}
		if events[0].Type != "data" {
			t.Errorf("expected type data, got %q", events[0].Type)
		}
	})

	t.Run("named event with multi-line data", func(t *testing.T) {
		input := "event: delta\ndata: first\ndata: second\n\n"
		s := NewSSEScanner(strings.NewReader(input))
		if !s.Scan() {
			t.Fatal("expected an event")
		}
		ev := s.Event()
		if ev.Type != "delta" {
			t.Errorf("expected type delta, got %q", ev.Type)
		}
		if ev.Data != "first\nsecond" {
			t.Errorf("unexpected data %q", ev.Data)
		}
	})

	t.Run("trailing event without blank line", func(t *testing.T) {
		s := NewSSEScanner(strings.NewReader("data: tail"))
		if !s.Scan() {
			t.Fatal("expected trailing event")
		}
		if s.Event().Data != "tail" {
			t.Errorf("unexpected data %q", s.Event().Data)
		}
		if s.Scan() {
			t.Error("expected end of stream")
		}
	})

	t.Run("carriage returns stripped", func(t *testing.T) {
		s := NewSSEScanner(strings.NewReader("data: crlf\r\n\r\n"))
		if !s.Scan() {
			t.Fatal("expected an event")
		}
		if s.Event().Data != "crlf" {
			t.Errorf("unexpected data %q", s.Event().Data)
		}
	})
}
