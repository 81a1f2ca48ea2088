package conversation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/otakulab/animesommelier/internal/errors"
	"github.com/otakulab/animesommelier/store"
	teststore "github.com/otakulab/animesommelier/store/test"
)

func TestCreate(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	svc := NewService(ts, nil)

	t.Run("ValidPersona", func(t *testing.T) {
		conversation, err := svc.Create(ctx, "user-1", "sommelier", "")
		require.NoError(t, err)
		assert.NotEmpty(t, conversation.ID)
		assert.Equal(t, "user-1", conversation.UserID)
		assert.Equal(t, "sommelier", conversation.PersonaType)
		assert.Empty(t, conversation.Title)
		assert.NotZero(t, conversation.CreatedTs)
	})

	t.Run("UnknownPersona", func(t *testing.T) {
		_, err := svc.Create(ctx, "user-1", "wine_critic", "")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
	})
}

func TestVerifyOwnership(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	svc := NewService(ts, nil)

	owned, err := svc.Create(ctx, "alice", "cafe_owner", "")
	require.NoError(t, err)

	t.Run("Owner", func(t *testing.T) {
		conversation, err := svc.VerifyOwnership(ctx, owned.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, owned.ID, conversation.ID)
	})

	t.Run("OtherUser", func(t *testing.T) {
		_, err := svc.VerifyOwnership(ctx, owned.ID, "bob")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePermissionDenied))
	})

	t.Run("MissingConversation", func(t *testing.T) {
		_, err := svc.VerifyOwnership(ctx, "no-such-id", "alice")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound),
			"a missing id must be NOT_FOUND even for a non-owner")
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	svc := NewService(ts, nil)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, "alice", "otaku_friend", "")
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "bob", "sommelier", "")
	require.NoError(t, err)

	t.Run("OnlyOwnConversations", func(t *testing.T) {
		page, err := svc.List(ctx, "alice", 10, 0)
		require.NoError(t, err)
		assert.Len(t, page.Conversations, 5)
		assert.Equal(t, 5, page.Total)
		assert.False(t, page.HasMore)
		for _, summary := range page.Conversations {
			assert.Equal(t, "alice", summary.UserID)
			assert.Zero(t, summary.MessageCount)
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		page, err := svc.List(ctx, "alice", 2, 0)
		require.NoError(t, err)
		assert.Len(t, page.Conversations, 2)
		assert.Equal(t, 5, page.Total)
		assert.True(t, page.HasMore)

		page, err = svc.List(ctx, "alice", 2, 4)
		require.NoError(t, err)
		assert.Len(t, page.Conversations, 1)
		assert.False(t, page.HasMore)
	})

	t.Run("ClampsLimitAndOffset", func(t *testing.T) {
		page, err := svc.List(ctx, "alice", -3, -10)
		require.NoError(t, err)
		assert.Len(t, page.Conversations, 5)

		page, err = svc.List(ctx, "alice", 5000, 0)
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
	})

	t.Run("EmptyUser", func(t *testing.T) {
		page, err := svc.List(ctx, "nobody", 10, 0)
		require.NoError(t, err)
		assert.Empty(t, page.Conversations)
		assert.Zero(t, page.Total)
		assert.False(t, page.HasMore)
	})
}

func TestGetDetailAndHistory(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	svc := NewService(ts, nil)

	conversation, err := svc.Create(ctx, "alice", "sommelier", "")
	require.NoError(t, err)

	// Write a few turns directly through the store.
	for i := 0; i < 12; i++ {
		user := &store.Message{
			ID:             fmt.Sprintf("user-msg-%d", i),
			ConversationID: conversation.ID,
			Role:           store.MessageRoleUser,
			Content:        fmt.Sprintf("question %d", i),
		}
		assistant := &store.Message{
			ID:             fmt.Sprintf("assistant-msg-%d", i),
			ConversationID: conversation.ID,
			Role:           store.MessageRoleAssistant,
			Content:        fmt.Sprintf("answer %d", i),
		}
		require.NoError(t, ts.CreateTurnMessages(ctx, user, assistant, "question 0"))
	}

	t.Run("DetailReturnsAllMessagesInOrder", func(t *testing.T) {
		got, messages, err := svc.GetDetail(ctx, conversation.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, "question 0", got.Title)
		require.Len(t, messages, 24)
		assert.Equal(t, "question 0", messages[0].Content)
		assert.Equal(t, "answer 11", messages[23].Content)
	})

	t.Run("DetailDeniedForOtherUser", func(t *testing.T) {
		_, _, err := svc.GetDetail(ctx, conversation.ID, "bob")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePermissionDenied))
	})

	t.Run("HistoryIsTrailingWindow", func(t *testing.T) {
		history, err := svc.LoadRecentHistory(ctx, conversation.ID)
		require.NoError(t, err)
		require.Len(t, history, historyWindow)
		assert.Equal(t, "question 2", history[0].Content)
		assert.Equal(t, "answer 11", history[len(history)-1].Content)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	svc := NewService(ts, nil)

	conversation, err := svc.Create(ctx, "alice", "cafe_owner", "")
	require.NoError(t, err)

	t.Run("DeniedForOtherUser", func(t *testing.T) {
		err := svc.Delete(ctx, conversation.ID, "bob")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePermissionDenied))
	})

	t.Run("OwnerDeletes", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, conversation.ID, "alice"))

		_, err := svc.VerifyOwnership(ctx, conversation.ID, "alice")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	})
}
