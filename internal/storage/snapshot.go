package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Yassen717/Chatly/internal/auth"
	"github.com/Yassen717/Chatly/internal/chat"
)

// Persisted blob keys.
const (
	ChatStorageKey = "chat-storage"
	AuthStorageKey = "auth-storage"
)

const snapshotVersion = 0

// Dates are stored as ISO-8601 strings and converted back to time.Time
// exactly once, here at the persistence boundary. In-memory state only
// ever holds time.Time.

type messageDTO struct {
	ID             string                `json:"id"`
	Text           string                `json:"text"`
	Sender         chat.Sender           `json:"sender"`
	Timestamp      string                `json:"timestamp"`
	ConversationID string                `json:"conversationId"`
	Metadata       *chat.MessageMetadata `json:"metadata,omitempty"`
}

type conversationDTO struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Messages    []messageDTO       `json:"messages"`
	LastMessage string             `json:"lastMessage,omitempty"`
	CreatedAt   string             `json:"createdAt"`
	UpdatedAt   string             `json:"updatedAt"`
	IsPinned    bool               `json:"isPinned"`
	Context     chat.ContextConfig `json:"context"`
}

type chatState struct {
	Conversations        []conversationDTO `json:"conversations"`
	ActiveConversationID string            `json:"activeConversationId,omitempty"`
}

type chatSnapshot struct {
	State   chatState `json:"state"`
	Version int       `json:"version"`
}

type authState struct {
	User            *auth.UserRecord `json:"user,omitempty"`
	IsAuthenticated bool             `json:"isAuthenticated"`
}

type authSnapshot struct {
	State   authState `json:"state"`
	Version int       `json:"version"`
}

// EncodeChatSnapshot serializes conversations and the active pointer
// into the persisted document format.
func EncodeChatSnapshot(conversations []chat.Conversation, activeID string) ([]byte, error) {
	state := chatState{
		Conversations:        make([]conversationDTO, len(conversations)),
		ActiveConversationID: activeID,
	}
	for i, conv := range conversations {
		dto := conversationDTO{
			ID:          conv.ID,
			Title:       conv.Title,
			Messages:    make([]messageDTO, len(conv.Messages)),
			LastMessage: conv.LastMessage,
			CreatedAt:   conv.CreatedAt.UTC().Format(time.RFC3339Nano),
			UpdatedAt:   conv.UpdatedAt.UTC().Format(time.RFC3339Nano),
			IsPinned:    conv.IsPinned,
			Context:     conv.Context,
		}
		for j, msg := range conv.Messages {
			dto.Messages[j] = messageDTO{
				ID:             msg.ID,
				Text:           msg.Text,
				Sender:         msg.Sender,
				Timestamp:      msg.Timestamp.UTC().Format(time.RFC3339Nano),
				ConversationID: msg.ConversationID,
				Metadata:       msg.Metadata,
			}
		}
		state.Conversations[i] = dto
	}
	return json.Marshal(chatSnapshot{State: state, Version: snapshotVersion})
}

// DecodeChatSnapshot parses a persisted document back into store
// state.
func DecodeChatSnapshot(data []byte) ([]chat.Conversation, string, error) {
	var snap chatSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, "", fmt.Errorf("failed to decode chat snapshot: %w", err)
	}

	conversations := make([]chat.Conversation, len(snap.State.Conversations))
	for i, dto := range snap.State.Conversations {
		conv := chat.Conversation{
			ID:          dto.ID,
			Title:       dto.Title,
			Messages:    make([]chat.Message, len(dto.Messages)),
			LastMessage: dto.LastMessage,
			IsPinned:    dto.IsPinned,
			Context:     dto.Context,
		}
		var err error
		if conv.CreatedAt, err = parseDate(dto.CreatedAt); err != nil {
			return nil, "", fmt.Errorf("conversation %s: %w", dto.ID, err)
		}
		if conv.UpdatedAt, err = parseDate(dto.UpdatedAt); err != nil {
			return nil, "", fmt.Errorf("conversation %s: %w", dto.ID, err)
		}
		for j, m := range dto.Messages {
			msg := chat.Message{
				ID:             m.ID,
				Text:           m.Text,
				Sender:         m.Sender,
				ConversationID: m.ConversationID,
				Metadata:       m.Metadata,
			}
			if msg.Timestamp, err = parseDate(m.Timestamp); err != nil {
				return nil, "", fmt.Errorf("message %s: %w", m.ID, err)
			}
			conv.Messages[j] = msg
		}
		conversations[i] = conv
	}
	return conversations, snap.State.ActiveConversationID, nil
}

// EncodeAuthSnapshot serializes the signed-in user (nil for signed
// out).
func EncodeAuthSnapshot(user *auth.UserRecord) ([]byte, error) {
	return json.Marshal(authSnapshot{
		State:   authState{User: user, IsAuthenticated: user != nil},
		Version: snapshotVersion,
	})
}

// DecodeAuthSnapshot parses a persisted auth document.
func DecodeAuthSnapshot(data []byte) (*auth.UserRecord, error) {
	var snap authSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode auth snapshot: %w", err)
	}
	if !snap.State.IsAuthenticated {
		return nil, nil
	}
	return snap.State.User, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
