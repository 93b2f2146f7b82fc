package ai

import (
	"context"
	"strings"
)

// Stream is a channel of incremental response chunks.
type Stream <-chan StreamChunk

// StreamChunk represents the different kinds of streaming payloads.
type StreamChunk interface {
	Type() string
}

// TextChunk is an incremental piece of response text.
type TextChunk struct {
	Text string `json:"text"`
}

func (c TextChunk) Type() string { return "text" }

// UsageChunk carries token usage, typically as the final chunk.
type UsageChunk struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (c UsageChunk) Type() string { return "usage" }

// ErrorChunk signals that the stream aborted. At most one is sent,
// always last.
type ErrorChunk struct {
	Err error `json:"-"`
}

func (c ErrorChunk) Type() string { return "error" }

// StreamCollector accumulates chunks into a final response.
type StreamCollector struct {
	text  strings.Builder
	usage *Usage
	err   error
}

// NewStreamCollector creates an empty collector.
func NewStreamCollector() *StreamCollector {
	return &StreamCollector{}
}

// Collect folds a chunk into the collector.
func (sc *StreamCollector) Collect(chunk StreamChunk) {
	switch c := chunk.(type) {
	case TextChunk:
		sc.text.WriteString(c.Text)
	case UsageChunk:
		sc.usage = &Usage{
			PromptTokens:     c.PromptTokens,
			CompletionTokens: c.CompletionTokens,
			TotalTokens:      c.PromptTokens + c.CompletionTokens,
		}
	case ErrorChunk:
		sc.err = c.Err
	}
}

// Text returns the accumulated response text so far.
func (sc *StreamCollector) Text() string { return sc.text.String() }

// Usage returns the reported usage, or nil when none arrived.
func (sc *StreamCollector) Usage() *Usage { return sc.usage }

// Err returns the stream error, if any.
func (sc *StreamCollector) Err() error { return sc.err }

// Drain consumes the whole stream into a response, honoring context
// cancellation.
func Drain(ctx context.Context, stream Stream) (*Response, error) {
	collector := NewStreamCollector()
	for {
		select {
		case chunk, ok := <-stream:
			if !ok {
				if collector.Err() != nil {
					return nil, collector.Err()
				}
				return &Response{Text: collector.Text(), Usage: collector.Usage()}, nil
			}
			collector.Collect(chunk)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
