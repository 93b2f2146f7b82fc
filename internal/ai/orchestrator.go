package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Yassen717/Chatly/internal/chat"
)

// FallbackText is shown in place of an assistant reply when the
// provider fails. Provider errors never surface to the caller as
// errors; the conversation always ends in a consistent state.
const FallbackText = "I'm having trouble connecting to my AI service right now. Please try again in a moment."

var (
	// ErrEmptyMessage is returned when the submitted text is blank.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrConversationBusy is returned when a send is already in
	// flight for the same conversation.
	ErrConversationBusy = errors.New("a message is already being processed for this conversation")
)

// SendOptions carries per-send callbacks and overrides.
type SendOptions struct {
	// Streaming overrides the orchestrator default when non-nil.
	Streaming *bool

	// OnChunk receives the accumulated assistant text after each
	// streamed chunk.
	OnChunk func(accumulated string)

	// OnComplete receives the finalized assistant message.
	OnComplete func(msg chat.Message)

	// OnError observes the underlying provider error before the
	// fallback reply is committed.
	OnError func(err error)
}

// Orchestrator drives the request/response cycle between the
// conversation store and an AI provider: committing the user turn,
// assembling the context window, dispatching the provider call, and
// committing the assistant turn (or the fallback) when it resolves.
type Orchestrator struct {
	store    *chat.Store
	provider Provider
	counter  *chat.TokenCounter
	logger   *log.Logger

	systemPrompt string
	modelConfig  chat.ModelConfig
	contextLimit int
	streaming    bool

	mu       sync.Mutex
	inflight map[string]bool
}

// OrchestratorOptions configures a new Orchestrator.
type OrchestratorOptions struct {
	SystemPrompt string
	ModelConfig  chat.ModelConfig
	ContextLimit int
	Streaming    bool
	Logger       *log.Logger
}

// NewOrchestrator wires an orchestrator to a store and provider.
func NewOrchestrator(store *chat.Store, provider Provider, opts OrchestratorOptions) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		store:        store,
		provider:     provider,
		counter:      chat.NewTokenCounter(),
		logger:       logger,
		systemPrompt: opts.SystemPrompt,
		modelConfig:  opts.ModelConfig,
		contextLimit: opts.ContextLimit,
		streaming:    opts.Streaming,
		inflight:     make(map[string]bool),
	}
}

// Provider returns the active provider.
func (o *Orchestrator) Provider() Provider { return o.provider }

// SendMessage submits a user turn and blocks until the assistant turn
// is committed. When conversationID is empty or unknown a new
// conversation is created; its id is returned either way. Provider
// failures are absorbed into a fallback assistant message and do not
// produce an error return.
func (o *Orchestrator) SendMessage(ctx context.Context, conversationID, text string, opts SendOptions) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return conversationID, ErrEmptyMessage
	}

	convID := conversationID
	conv, ok := o.store.Conversation(convID)
	if convID == "" || !ok {
		convID = o.store.CreateConversation("", o.systemPrompt)
		conv, _ = o.store.Conversation(convID)
	}

	if !o.acquire(convID) {
		return convID, ErrConversationBusy
	}
	defer o.release(convID)

	model := o.provider.Model()
	firstTurn := len(conv.Messages) == 0

	o.store.AddMessage(convID, text, chat.SenderUser, &chat.MessageMetadata{
		TokenCount: o.counter.CountTokens(text, model),
	})
	o.store.SetPending(convID, true)
	defer o.store.SetPending(convID, false)

	if firstTurn {
		go o.generateTitle(convID, text)
	}

	req := o.buildRequest(convID, model)

	streaming := o.streaming
	if opts.Streaming != nil {
		streaming = *opts.Streaming
	}

	if streaming {
		o.sendStreaming(ctx, convID, model, req, opts)
	} else {
		o.sendBlocking(ctx, convID, model, req, opts)
	}
	return convID, nil
}

// buildRequest assembles the provider request from the conversation's
// context window. The synthetic system message the window emits for
// empty conversations is lifted out into the request's system prompt
// rather than sent as a turn.
func (o *Orchestrator) buildRequest(convID, model string) Request {
	conv, ok := o.store.Conversation(convID)

	systemPrompt := o.systemPrompt
	if ok && conv.Context.SystemPrompt != "" {
		systemPrompt = conv.Context.SystemPrompt
	}

	var messages []ChatMessage
	for _, msg := range o.store.GetConversationContext(convID, o.contextLimit) {
		if msg.ID == chat.SyntheticSystemID {
			continue
		}
		role := RoleUser
		if msg.Sender == chat.SenderAI {
			role = RoleAssistant
		}
		messages = append(messages, ChatMessage{Role: role, Content: msg.Text})
	}

	return Request{
		Model:        model,
		SystemPrompt: systemPrompt,
		Messages:     messages,
		MaxTokens:    o.modelConfig.MaxTokens,
		Temperature:  o.modelConfig.Temperature,
		TopK:         o.modelConfig.TopK,
		TopP:         o.modelConfig.TopP,
	}
}

func (o *Orchestrator) sendBlocking(ctx context.Context, convID, model string, req Request, opts SendOptions) {
	resp, err := o.provider.Complete(ctx, req)
	if err != nil {
		o.commitFallback(convID, model, err, opts)
		return
	}

	meta := &chat.MessageMetadata{
		Model:      model,
		TokenCount: o.counter.CountTokens(resp.Text, model),
	}
	if resp.Usage != nil && resp.Usage.CompletionTokens > 0 {
		meta.TokenCount = resp.Usage.CompletionTokens
	}
	msgID := o.store.AddMessage(convID, resp.Text, chat.SenderAI, meta)
	o.complete(convID, msgID, opts)
}

// sendStreaming commits a placeholder assistant message up front and
// mutates it in place as chunks arrive, so observers see exactly one
// assistant message per exchange.
func (o *Orchestrator) sendStreaming(ctx context.Context, convID, model string, req Request, opts SendOptions) {
	stream, err := o.provider.Stream(ctx, req)
	if err != nil {
		o.commitFallback(convID, model, err, opts)
		return
	}

	streamID := uuid.NewString()
	msgID := o.store.AddMessage(convID, "", chat.SenderAI, &chat.MessageMetadata{
		Model:       model,
		IsStreaming: true,
		StreamID:    streamID,
	})

	var buf strings.Builder
	var usage *Usage
	for chunk := range stream {
		switch c := chunk.(type) {
		case TextChunk:
			buf.WriteString(c.Text)
			partial := buf.String()
			o.store.UpdateMessage(convID, msgID, chat.MessageUpdate{
				Metadata: &chat.MessageMetadata{
					Model:       model,
					IsStreaming: true,
					StreamID:    streamID,
					PartialText: partial,
				},
			})
			if opts.OnChunk != nil {
				opts.OnChunk(partial)
			}
		case UsageChunk:
			usage = &Usage{
				PromptTokens:     c.PromptTokens,
				CompletionTokens: c.CompletionTokens,
				TotalTokens:      c.PromptTokens + c.CompletionTokens,
			}
		case ErrorChunk:
			o.finalizeFallback(convID, msgID, model, streamID, c.Err, opts)
			return
		}
	}

	final := buf.String()
	tokens := o.counter.CountTokens(final, model)
	if usage != nil && usage.CompletionTokens > 0 {
		tokens = usage.CompletionTokens
	}
	o.store.UpdateMessage(convID, msgID, chat.MessageUpdate{
		Text: &final,
		Metadata: &chat.MessageMetadata{
			Model:      model,
			TokenCount: tokens,
			StreamID:   streamID,
		},
	})
	o.complete(convID, msgID, opts)
}

// commitFallback appends a fresh fallback assistant message.
func (o *Orchestrator) commitFallback(convID, model string, cause error, opts SendOptions) {
	o.logger.Error("AI request failed", "conversation", convID, "error", cause)
	if opts.OnError != nil {
		opts.OnError(cause)
	}
	msgID := o.store.AddMessage(convID, FallbackText, chat.SenderAI, &chat.MessageMetadata{
		Model:   model,
		IsError: true,
	})
	o.complete(convID, msgID, opts)
}

// finalizeFallback rewrites an existing streaming placeholder into the
// fallback reply.
func (o *Orchestrator) finalizeFallback(convID, msgID, model, streamID string, cause error, opts SendOptions) {
	o.logger.Error("AI stream failed", "conversation", convID, "error", cause)
	if opts.OnError != nil {
		opts.OnError(cause)
	}
	text := FallbackText
	o.store.UpdateMessage(convID, msgID, chat.MessageUpdate{
		Text: &text,
		Metadata: &chat.MessageMetadata{
			Model:    model,
			IsError:  true,
			StreamID: streamID,
		},
	})
	o.complete(convID, msgID, opts)
}

func (o *Orchestrator) complete(convID, msgID string, opts SendOptions) {
	if opts.OnComplete == nil {
		return
	}
	conv, ok := o.store.Conversation(convID)
	if !ok {
		return
	}
	for _, msg := range conv.Messages {
		if msg.ID == msgID {
			opts.OnComplete(msg)
			return
		}
	}
}

// generateTitle asks the provider for a conversation title in the
// background. Failures are logged and swallowed; the derived title
// from the first user message remains in place.
func (o *Orchestrator) generateTitle(convID, firstMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	title, err := o.provider.Title(ctx, firstMessage)
	if err != nil {
		o.logger.Warn("title generation failed", "conversation", convID, "error", err)
		return
	}
	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" || title == chat.DefaultTitle {
		return
	}
	o.store.UpdateConversationTitle(convID, title)
}

func (o *Orchestrator) acquire(convID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[convID] {
		return false
	}
	o.inflight[convID] = true
	return true
}

func (o *Orchestrator) release(convID string) {
	o.mu.Lock()
	delete(o.inflight, convID)
	o.mu.Unlock()
}
