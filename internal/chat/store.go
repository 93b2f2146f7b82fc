package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Store is the exclusive owner of conversation state. All mutations go
// through it; lookups against unknown ids are silent no-ops rather than
// errors. Conversations are held newest-first.
type Store struct {
	mu            sync.RWMutex
	conversations []*Conversation
	activeID      string
	pending       map[string]bool

	onChange func()
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{
		pending: make(map[string]bool),
	}
}

// SetOnChange registers a callback invoked after every state mutation,
// outside the store lock. Used to drive persistence.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// CreateConversation builds a new conversation with defaults, prepends
// it to the collection and makes it active. It never fails.
func (s *Store) CreateConversation(title, systemPrompt string) string {
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Context: ContextConfig{
			SystemPrompt: systemPrompt,
			MessageLimit: DefaultMessageLimit,
		},
	}

	s.mu.Lock()
	s.conversations = append([]*Conversation{conv}, s.conversations...)
	s.activeID = conv.ID
	s.mu.Unlock()

	log.Debug("conversation created", "id", conv.ID)
	s.notify()
	return conv.ID
}

// DeleteConversation removes the matching conversation irrecoverably.
// A missing id is a no-op. Deleting the active conversation clears the
// active pointer.
func (s *Store) DeleteConversation(id string) {
	s.mu.Lock()
	removed := false
	for i, c := range s.conversations {
		if c.ID == id {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		if s.activeID == id {
			s.activeID = ""
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if removed {
		s.notify()
	}
}

// SetActiveConversation points the store at the conversation the UI is
// viewing. An empty id clears the pointer; an unknown id is a silent
// no-op, consistent with the rest of the store's miss semantics.
func (s *Store) SetActiveConversation(id string) {
	s.mu.Lock()
	changed := false
	if id == "" || s.lookup(id) != nil {
		changed = s.activeID != id
		s.activeID = id
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// ActiveConversation returns the id of the active conversation, or the
// empty string when none is selected.
func (s *Store) ActiveConversation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// lookup must be called with the lock held.
func (s *Store) lookup(id string) *Conversation {
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// AddMessage appends a message with a fresh id and timestamp, refreshes
// updatedAt, trims history to the message limit and accumulates token
// usage when the metadata carries a token count. A missing conversation
// id is a no-op. The new message id is returned, or the empty string on
// a miss.
func (s *Store) AddMessage(conversationID, text string, sender Sender, md *MessageMetadata) string {
	s.mu.Lock()
	conv := s.lookup(conversationID)
	if conv == nil {
		s.mu.Unlock()
		return ""
	}

	// First user message on a still-untitled conversation names it.
	if sender == SenderUser && len(conv.Messages) == 0 && conv.Title == DefaultTitle {
		conv.Title = deriveTitle(text)
	}

	msg := Message{
		ID:             uuid.NewString(),
		Text:           text,
		Sender:         sender,
		Timestamp:      time.Now(),
		ConversationID: conversationID,
	}
	if md != nil {
		copied := *md
		msg.Metadata = &copied
	}

	conv.Messages = append(conv.Messages, msg)
	conv.LastMessage = text
	conv.UpdatedAt = msg.Timestamp
	trimMessages(conv)

	if md != nil && md.TokenCount > 0 {
		conv.Context.TokenUsage.Total += md.TokenCount
		switch sender {
		case SenderUser:
			conv.Context.TokenUsage.Prompt += md.TokenCount
		case SenderAI:
			conv.Context.TokenUsage.Completion += md.TokenCount
		}
	}
	s.mu.Unlock()

	s.notify()
	return msg.ID
}

// UpdateMessage merges partial fields into an existing message. Used to
// apply streaming partial text. A missing conversation or message is a
// no-op.
func (s *Store) UpdateMessage(conversationID, messageID string, upd MessageUpdate) {
	s.mu.Lock()
	conv := s.lookup(conversationID)
	changed := false
	if conv != nil {
		for i := range conv.Messages {
			if conv.Messages[i].ID != messageID {
				continue
			}
			if upd.Text != nil {
				conv.Messages[i].Text = *upd.Text
				// The newest message backs the chat-list preview.
				if i == len(conv.Messages)-1 {
					conv.LastMessage = *upd.Text
				}
			}
			if upd.Metadata != nil {
				copied := *upd.Metadata
				conv.Messages[i].Metadata = &copied
			}
			changed = true
			break
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// UpdateConversationTitle sets the title and refreshes updatedAt.
func (s *Store) UpdateConversationTitle(id, title string) {
	s.mu.Lock()
	conv := s.lookup(id)
	if conv != nil {
		conv.Title = title
		conv.UpdatedAt = time.Now()
	}
	s.mu.Unlock()

	if conv != nil {
		s.notify()
	}
}

// TogglePinConversation flips the pin flag. Pinning is metadata, not
// content, so updatedAt is left alone.
func (s *Store) TogglePinConversation(id string) {
	s.mu.Lock()
	conv := s.lookup(id)
	if conv != nil {
		conv.IsPinned = !conv.IsPinned
	}
	s.mu.Unlock()

	if conv != nil {
		s.notify()
	}
}

// UpdateContextConfig merges partial context settings and refreshes
// updatedAt. History is not re-trimmed here; ClearOldMessages applies a
// lowered limit explicitly.
func (s *Store) UpdateContextConfig(id string, upd ContextUpdate) {
	s.mu.Lock()
	conv := s.lookup(id)
	if conv != nil {
		if upd.SystemPrompt != nil {
			conv.Context.SystemPrompt = *upd.SystemPrompt
		}
		if upd.ModelConfig != nil {
			conv.Context.ModelConfig = *upd.ModelConfig
		}
		if upd.MessageLimit != nil && *upd.MessageLimit > 0 {
			conv.Context.MessageLimit = *upd.MessageLimit
		}
		conv.UpdatedAt = time.Now()
	}
	s.mu.Unlock()

	if conv != nil {
		s.notify()
	}
}

// SearchConversations returns the conversations whose title or any
// message text contains the query, case-insensitively. An empty or
// whitespace query returns every conversation, order preserved.
func (s *Store) SearchConversations(query string) []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]Conversation, 0, len(s.conversations))
		for _, c := range s.conversations {
			out = append(out, c.clone())
		}
		return out
	}

	fold := cases.Fold()
	needle := fold.String(query)

	var out []Conversation
	for _, c := range s.conversations {
		if strings.Contains(fold.String(c.Title), needle) {
			out = append(out, c.clone())
			continue
		}
		for _, m := range c.Messages {
			if strings.Contains(fold.String(m.Text), needle) {
				out = append(out, c.clone())
				break
			}
		}
	}
	return out
}

// GetConversationContext returns the most recent limit messages for the
// conversation. When the conversation has no messages and a system
// prompt is configured, a single synthetic message carrying the prompt
// is returned instead. A limit of zero or below falls back to
// DefaultContextLimit. A missing conversation yields nil.
func (s *Store) GetConversationContext(conversationID string, limit int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.lookup(conversationID)
	if conv == nil {
		return nil
	}
	return contextWindow(conv, limit)
}

// ClearOldMessages re-applies the message limit. Idempotent.
func (s *Store) ClearOldMessages(conversationID string) {
	s.mu.Lock()
	conv := s.lookup(conversationID)
	trimmed := false
	if conv != nil {
		trimmed = trimMessages(conv)
	}
	s.mu.Unlock()

	if trimmed {
		s.notify()
	}
}

// Conversation returns a copy of the conversation and whether it exists.
func (s *Store) Conversation(id string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.lookup(id)
	if conv == nil {
		return Conversation{}, false
	}
	return conv.clone(), true
}

// Conversations returns copies of all conversations, newest-first by
// creation. Pin-based grouping is a presentation concern and is not
// applied here.
func (s *Store) Conversations() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c.clone())
	}
	return out
}

// SetPending marks or clears the pending indicator for a conversation.
// Pending state is keyed per conversation so concurrent requests in
// different conversations cannot clobber each other's flag.
func (s *Store) SetPending(conversationID string, pending bool) {
	s.mu.Lock()
	if pending {
		s.pending[conversationID] = true
	} else {
		delete(s.pending, conversationID)
	}
	s.mu.Unlock()
}

// Pending reports whether a request is in flight for the conversation.
func (s *Store) Pending(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[conversationID]
}

// Snapshot returns the persistable state: all conversations and the
// active pointer.
func (s *Store) Snapshot() ([]Conversation, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c.clone())
	}
	return out, s.activeID
}

// Restore replaces store state from a persisted snapshot. Conversations
// with a zero message limit get the default.
func (s *Store) Restore(conversations []Conversation, activeID string) {
	s.mu.Lock()
	s.conversations = make([]*Conversation, 0, len(conversations))
	for i := range conversations {
		c := conversations[i].clone()
		if c.Context.MessageLimit <= 0 {
			c.Context.MessageLimit = DefaultMessageLimit
		}
		s.conversations = append(s.conversations, &c)
	}
	if activeID != "" && s.lookup(activeID) == nil {
		activeID = ""
	}
	s.activeID = activeID
	s.mu.Unlock()
}

// trimMessages drops the oldest messages beyond the limit. Must be
// called with the lock held. Reports whether anything was dropped.
func trimMessages(conv *Conversation) bool {
	limit := conv.Context.MessageLimit
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if len(conv.Messages) <= limit {
		return false
	}
	conv.Messages = append([]Message(nil), conv.Messages[len(conv.Messages)-limit:]...)
	return true
}

// deriveTitle names a conversation after its first user message.
func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen]) + "..."
	}
	return text
}
