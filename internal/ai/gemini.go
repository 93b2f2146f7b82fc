package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiOptions configures a GeminiProvider.
type GeminiOptions struct {
	APIKey  string
	ModelID string
}

// GeminiProvider implements Provider over the official Google
// Generative AI SDK. It is the session-oriented collaborator form:
// history is replayed as content turns rather than raw wire messages.
type GeminiProvider struct {
	options GeminiOptions

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider. The SDK client is built
// lazily on first use.
func NewGeminiProvider(options GeminiOptions) *GeminiProvider {
	return &GeminiProvider{options: options}
}

// Model implements Provider.
func (p *GeminiProvider) Model() string { return p.options.ModelID }

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.options.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	p.client = client
	return client, nil
}

// Complete implements Provider.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	contents := p.convertMessages(req.Messages)
	result, err := client.Models.GenerateContent(ctx, p.options.ModelID, contents, p.generationConfig(req))
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	text := extractGeminiText(result)
	resp := &Response{Text: text}
	if result.UsageMetadata != nil {
		resp.Usage = &Usage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}

// Stream implements Provider using the SDK's streaming iterator.
func (p *GeminiProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	contents := p.convertMessages(req.Messages)
	iter := client.Models.GenerateContentStream(ctx, p.options.ModelID, contents, p.generationConfig(req))

	out := make(chan StreamChunk, 100)
	go func() {
		defer close(out)

		var usage *genai.GenerateContentResponseUsageMetadata
		for result, err := range iter {
			if err != nil {
				out <- ErrorChunk{Err: err}
				return
			}
			if len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
				for _, part := range result.Candidates[0].Content.Parts {
					if part.Text != "" {
						out <- TextChunk{Text: part.Text}
					}
				}
			}
			if result.UsageMetadata != nil {
				usage = result.UsageMetadata
			}
		}
		if usage != nil {
			out <- UsageChunk{
				PromptTokens:     int(usage.PromptTokenCount),
				CompletionTokens: int(usage.CandidatesTokenCount),
			}
		}
	}()
	return out, nil
}

// Title implements Provider with a single generateContent call.
func (p *GeminiProvider) Title(ctx context.Context, firstMessage string) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("%s\n\nMessage: %s", titlePrompt, firstMessage)
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}
	result, err := client.Models.GenerateContent(ctx, p.options.ModelID, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: 20,
	})
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}
	return strings.TrimSpace(extractGeminiText(result)), nil
}

// convertMessages maps history to Gemini content turns. The assistant
// role is "model" on this API.
func (p *GeminiProvider) convertMessages(messages []ChatMessage) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents
}

func (p *GeminiProvider) generationConfig(req Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.TopK > 0 {
		config.TopK = genai.Ptr(float32(req.TopK))
	}
	if req.TopP > 0 {
		config.TopP = genai.Ptr(float32(req.TopP))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	return config
}

func extractGeminiText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}
