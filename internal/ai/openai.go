package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// titlePrompt matches the single-shot title request shape: a short
// instruction plus the first user message, capped at a handful of
// output tokens.
const titlePrompt = "Generate a short, descriptive title for a conversation that starts " +
	"with this message. Keep it under 5 words. Return only the title, nothing else."

// OpenAIOptions configures an OpenAIProvider.
type OpenAIOptions struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	RequestTimeout time.Duration
}

// OpenAIProvider implements Provider against an OpenAI-compatible
// chat-completions endpoint.
type OpenAIProvider struct {
	options OpenAIOptions
	client  *http.Client
	baseURL string
}

// openAIRequest is the chat-completions request body.
type openAIRequest struct {
	Model         string              `json:"model"`
	Messages      []ChatMessage       `json:"messages"`
	MaxTokens     int                 `json:"max_tokens,omitempty"`
	Temperature   *float64            `json:"temperature,omitempty"`
	TopP          *float64            `json:"top_p,omitempty"`
	Stream        bool                `json:"stream"`
	StreamOptions *openAIStreamOptions `json:"stream_options,omitempty"`
}

type openAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}

type openAIStreamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}

// NewOpenAIProvider creates a provider for the configured endpoint.
func NewOpenAIProvider(options OpenAIOptions) *OpenAIProvider {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	timeout := 60 * time.Second
	if options.RequestTimeout > 0 {
		timeout = options.RequestTimeout
	}
	return &OpenAIProvider{
		options: options,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Model implements Provider.
func (p *OpenAIProvider) Model() string { return p.options.ModelID }

// Complete implements Provider with a single non-streaming POST.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	body, err := p.do(ctx, p.buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var parsed openAIResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}
	return &Response{
		Text:  parsed.Choices[0].Message.Content,
		Usage: parsed.Usage,
	}, nil
}

// Stream implements Provider via SSE delta events.
func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	body, err := p.do(ctx, p.buildRequest(req, true))
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk, 100)
	go func() {
		defer close(out)
		defer body.Close()
		p.processStream(body, out)
	}()
	return out, nil
}

// Title implements Provider with a single-shot prompt, max_tokens 20.
func (p *OpenAIProvider) Title(ctx context.Context, firstMessage string) (string, error) {
	temp := 0.5
	body, err := p.do(ctx, openAIRequest{
		Model: p.options.ModelID,
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: titlePrompt},
			{Role: RoleUser, Content: firstMessage},
		},
		MaxTokens:   20,
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	defer body.Close()

	var parsed openAIResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode title response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("title response contained no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// buildRequest converts the provider-neutral request into wire format.
// The system prompt, when present, leads the message list.
func (p *OpenAIProvider) buildRequest(req Request, stream bool) openAIRequest {
	messages := make([]ChatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, ChatMessage{Role: RoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, req.Messages...)

	model := req.Model
	if model == "" {
		model = p.options.ModelID
	}

	out := openAIRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	if req.TopP > 0 {
		tp := req.TopP
		out.TopP = &tp
	}
	if stream {
		out.StreamOptions = &openAIStreamOptions{IncludeUsage: true}
	}
	return out
}

// do executes the POST and returns the response body, converting
// transport failures and non-2xx statuses into errors with status and
// body attached.
func (p *OpenAIProvider) do(ctx context.Context, payload openAIRequest) (io.ReadCloser, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.options.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("AI API error %d: %s", resp.StatusCode, string(body))
	}
	return resp.Body, nil
}

// processStream converts SSE events into stream chunks.
func (p *OpenAIProvider) processStream(reader io.Reader, out chan<- StreamChunk) {
	scanner := NewSSEScanner(reader)
	for scanner.Scan() {
		event := scanner.Event()
		if event.Type != "data" {
			continue
		}
		if strings.TrimSpace(event.Data) == "[DONE]" {
			break
		}

		var streamEvent openAIStreamEvent
		if err := json.Unmarshal([]byte(event.Data), &streamEvent); err != nil {
			continue // skip malformed events
		}

		for _, choice := range streamEvent.Choices {
			if choice.Delta.Content != "" {
				out <- TextChunk{Text: choice.Delta.Content}
			}
		}
		if streamEvent.Usage != nil {
			out <- UsageChunk{
				PromptTokens:     streamEvent.Usage.PromptTokens,
				CompletionTokens: streamEvent.Usage.CompletionTokens,
			}
		}
	}
}
