package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yassen717/Chatly/internal/auth"
	"github.com/Yassen717/Chatly/internal/chat"
)

func sampleConversations() []chat.Conversation {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []chat.Conversation{
		{
			ID:          "conv-1",
			Title:       "Pinned chat",
			LastMessage: "see you",
			CreatedAt:   created,
			UpdatedAt:   created.Add(time.Hour),
			IsPinned:    true,
			Context: chat.ContextConfig{
				SystemPrompt: "be helpful",
				MessageLimit: 50,
				TokenUsage:   chat.TokenUsage{Total: 30, Prompt: 10, Completion: 20},
			},
			Messages: []chat.Message{
				{
					ID:             "msg-1",
					Text:           "hello",
					Sender:         chat.SenderUser,
					Timestamp:      created.Add(time.Minute),
					ConversationID: "conv-1",
					Metadata:       &chat.MessageMetadata{TokenCount: 10},
				},
				{
					ID:             "msg-2",
					Text:           "see you",
					Sender:         chat.SenderAI,
					Timestamp:      created.Add(2 * time.Minute),
					ConversationID: "conv-1",
					Metadata:       &chat.MessageMetadata{TokenCount: 20, Model: "gpt-4"},
				},
			},
		},
		{
			ID:        "conv-2",
			Title:     "Empty chat",
			CreatedAt: created,
			UpdatedAt: created,
			Context:   chat.ContextConfig{MessageLimit: 50},
		},
	}
}

func TestChatSnapshotRoundTrip(t *testing.T) {
	original := sampleConversations()

	data, err := EncodeChatSnapshot(original, "conv-2")
	require.NoError(t, err)

	decoded, activeID, err := DecodeChatSnapshot(data)
	require.NoError(t, err)

	assert.Equal(t, "conv-2", activeID)
	require.Len(t, decoded, 2)
	assert.Equal(t, original[0].Title, decoded[0].Title)
	assert.Equal(t, original[0].Context, decoded[0].Context)
	assert.True(t, decoded[0].IsPinned)
	require.Len(t, decoded[0].Messages, 2)
	assert.Equal(t, original[0].Messages[1].Metadata.Model, decoded[0].Messages[1].Metadata.Model)
	assert.True(t, decoded[0].Messages[0].Timestamp.Equal(original[0].Messages[0].Timestamp))
	assert.True(t, decoded[0].CreatedAt.Equal(original[0].CreatedAt))
}

func TestChatSnapshotDatesAreStrings(t *testing.T) {
	data, err := EncodeChatSnapshot(sampleConversations(), "")
	require.NoError(t, err)

	var raw struct {
		State struct {
			Conversations []struct {
				CreatedAt string `json:"createdAt"`
				Messages  []struct {
					Timestamp string `json:"timestamp"`
				} `json:"messages"`
			} `json:"conversations"`
		} `json:"state"`
		Version int `json:"version"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "2024-03-01T10:00:00Z", raw.State.Conversations[0].CreatedAt)
	assert.Equal(t, "2024-03-01T10:01:00Z", raw.State.Conversations[0].Messages[0].Timestamp)
}

func TestDecodeChatSnapshotErrors(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		_, _, err := DecodeChatSnapshot([]byte("{nope"))
		assert.Error(t, err)
	})

	t.Run("invalid date", func(t *testing.T) {
		_, _, err := DecodeChatSnapshot([]byte(
			`{"state":{"conversations":[{"id":"c","createdAt":"yesterday","updatedAt":"","messages":[]}]},"version":0}`))
		assert.Error(t, err)
	})

	t.Run("empty date fields tolerated", func(t *testing.T) {
		decoded, _, err := DecodeChatSnapshot([]byte(
			`{"state":{"conversations":[{"id":"c","createdAt":"","updatedAt":"","messages":[]}]},"version":0}`))
		require.NoError(t, err)
		require.Len(t, decoded, 1)
		assert.True(t, decoded[0].CreatedAt.IsZero())
	})
}

func TestAuthSnapshotRoundTrip(t *testing.T) {
	t.Run("signed in", func(t *testing.T) {
		user := &auth.UserRecord{UID: "u1", Email: "a@example.com", DisplayName: "Alex"}
		data, err := EncodeAuthSnapshot(user)
		require.NoError(t, err)

		decoded, err := DecodeAuthSnapshot(data)
		require.NoError(t, err)
		require.NotNil(t, decoded)
		assert.Equal(t, *user, *decoded)
	})

	t.Run("signed out", func(t *testing.T) {
		data, err := EncodeAuthSnapshot(nil)
		require.NoError(t, err)

		decoded, err := DecodeAuthSnapshot(data)
		require.NoError(t, err)
		assert.Nil(t, decoded)
	})
}

func TestSnapshotStoreIntegration(t *testing.T) {
	store := chat.NewStore()
	id := store.CreateConversation("integration", "prompt")
	store.AddMessage(id, "hello there", chat.SenderUser, &chat.MessageMetadata{TokenCount: 3})

	conversations, activeID := store.Snapshot()
	data, err := EncodeChatSnapshot(conversations, activeID)
	require.NoError(t, err)

	decoded, decodedActive, err := DecodeChatSnapshot(data)
	require.NoError(t, err)

	restored := chat.NewStore()
	restored.Restore(decoded, decodedActive)

	conv, ok := restored.Conversation(id)
	require.True(t, ok)
	assert.Equal(t, "integration", conv.Title)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "hello there", conv.Messages[0].Text)
	assert.Equal(t, id, restored.ActiveConversation())
}
