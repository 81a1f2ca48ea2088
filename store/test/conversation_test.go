package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otakulab/animesommelier/store"
)

func createConversation(ctx context.Context, t *testing.T, ts *store.Store, id, userID string) *store.Conversation {
	now := time.Now().Unix()
	conversation, err := ts.CreateConversation(ctx, &store.Conversation{
		ID:          id,
		UserID:      userID,
		PersonaType: "sommelier",
		CreatedTs:   now,
		UpdatedTs:   now,
	})
	require.NoError(t, err)
	return conversation
}

func turnMessages(conversationID, suffix string) (*store.Message, *store.Message) {
	user := &store.Message{
		ID:             "user-" + suffix,
		ConversationID: conversationID,
		Role:           store.MessageRoleUser,
		Content:        "question " + suffix,
		CreatedTs:      time.Now().Unix(),
	}
	assistant := &store.Message{
		ID:             "assistant-" + suffix,
		ConversationID: conversationID,
		Role:           store.MessageRoleAssistant,
		Content:        "answer " + suffix,
		AnimeReferences: []store.AnimeReference{
			{MALID: 5114, Title: "Fullmetal Alchemist: Brotherhood"},
		},
		CreatedTs: time.Now().Unix(),
	}
	return user, assistant
}

func TestCreateTurnMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("WritesBothMessagesAndBackfillsTitle", func(t *testing.T) {
		ts := NewTestingStore(ctx, t)
		conversation := createConversation(ctx, t, ts, "c1", "alice")

		user, assistant := turnMessages(conversation.ID, "a")
		require.NoError(t, ts.CreateTurnMessages(ctx, user, assistant, "first question"))

		messages, err := ts.ListMessages(ctx, &store.FindMessage{ConversationID: &conversation.ID})
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, store.MessageRoleUser, messages[0].Role)
		assert.Equal(t, store.MessageRoleAssistant, messages[1].Role)
		require.Len(t, messages[1].AnimeReferences, 1)
		assert.Equal(t, 5114, messages[1].AnimeReferences[0].MALID)

		got, err := ts.GetConversation(ctx, conversation.ID)
		require.NoError(t, err)
		assert.Equal(t, "first question", got.Title)
	})

	t.Run("TitleBackfillNeverOverwrites", func(t *testing.T) {
		ts := NewTestingStore(ctx, t)
		conversation := createConversation(ctx, t, ts, "c2", "alice")

		user, assistant := turnMessages(conversation.ID, "a")
		require.NoError(t, ts.CreateTurnMessages(ctx, user, assistant, "original title"))

		user, assistant = turnMessages(conversation.ID, "b")
		require.NoError(t, ts.CreateTurnMessages(ctx, user, assistant, "usurper title"))

		got, err := ts.GetConversation(ctx, conversation.ID)
		require.NoError(t, err)
		assert.Equal(t, "original title", got.Title)
	})

	t.Run("EmbeddingDoesNotAffectReads", func(t *testing.T) {
		ts := NewTestingStore(ctx, t)
		conversation := createConversation(ctx, t, ts, "c3", "alice")

		user, assistant := turnMessages(conversation.ID, "a")
		user.Embedding = []float32{0.5, -0.25, 0.125}
		require.NoError(t, ts.CreateTurnMessages(ctx, user, assistant, ""))

		messages, err := ts.ListMessages(ctx, &store.FindMessage{ConversationID: &conversation.ID})
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "question a", messages[0].Content)
	})
}

func TestListMessagesWindow(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	conversation := createConversation(ctx, t, ts, "c1", "alice")

	for _, suffix := range []string{"a", "b", "c", "d"} {
		user, assistant := turnMessages(conversation.ID, suffix)
		require.NoError(t, ts.CreateTurnMessages(ctx, user, assistant, ""))
	}

	lastN := 3
	messages, err := ts.ListMessages(ctx, &store.FindMessage{ConversationID: &conversation.ID, LastN: &lastN})
	require.NoError(t, err)
	require.Len(t, messages, 3)
	// The window is the trailing slice, returned oldest first.
	assert.Equal(t, "answer c", messages[0].Content)
	assert.Equal(t, "question d", messages[1].Content)
	assert.Equal(t, "answer d", messages[2].Content)
}

func TestDeleteConversationCascades(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	conversation := createConversation(ctx, t, ts, "c1", "alice")

	user, assistant := turnMessages(conversation.ID, "a")
	require.NoError(t, ts.CreateTurnMessages(ctx, user, assistant, ""))

	require.NoError(t, ts.DeleteConversation(ctx, &store.DeleteConversation{ID: conversation.ID}))

	got, err := ts.GetConversation(ctx, conversation.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	messages, err := ts.ListMessages(ctx, &store.FindMessage{ConversationID: &conversation.ID})
	require.NoError(t, err)
	assert.Empty(t, messages, "messages must cascade with the conversation")

	err = ts.DeleteConversation(ctx, &store.DeleteConversation{ID: conversation.ID})
	assert.Error(t, err, "deleting a missing conversation reports an error")
}

func TestCountMessages(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	first := createConversation(ctx, t, ts, "c1", "alice")
	second := createConversation(ctx, t, ts, "c2", "alice")

	user, assistant := turnMessages(first.ID, "a")
	require.NoError(t, ts.CreateTurnMessages(ctx, user, assistant, ""))

	counts, err := ts.CountMessages(ctx, []string{first.ID, second.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[first.ID])
	assert.Zero(t, counts[second.ID])
}
