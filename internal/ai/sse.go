package ai

import (
	"bufio"
	"io"
	"strings"
)

// SSEEvent is a single Server-Sent Event.
type SSEEvent struct {
	Type string
	Data string
}

// SSEScanner reads Server-Sent Events from a response body.
type SSEScanner struct {
	scanner *bufio.Scanner
	event   SSEEvent
}

// NewSSEScanner creates a scanner over the reader.
func NewSSEScanner(r io.Reader) *SSEScanner {
	sc := bufio.NewScanner(r)
	// Streaming chunks can exceed the default line limit.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &SSEScanner{scanner: sc}
}

// Scan advances to the next event. It returns false at end of stream.
func (s *SSEScanner) Scan() bool {
	var current SSEEvent
	seen := false

	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")

		if line == "" {
			if seen {
				s.event = current
				return true
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			current.Type = strings.TrimSpace(line[len("event:"):])
			seen = true
		case strings.HasPrefix(line, "data:"):
			if current.Data != "" {
				current.Data += "\n"
			}
			current.Data += strings.TrimSpace(line[len("data:"):])
			if current.Type == "" {
				current.Type = "data"
			}
			seen = true
		}
	}

	if seen {
		s.event = current
		return true
	}
	return false
}

// Event returns the event produced by the last successful Scan.
func (s *SSEScanner) Event() SSEEvent {
	return s.event
}
