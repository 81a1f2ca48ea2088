// Package conversation implements conversation lifecycle and access
// control. Every read or write on a conversation goes through the
// ownership check here; handlers never touch the store directly.
package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/otakulab/animesommelier/internal/errors"
	"github.com/otakulab/animesommelier/plugin/ai"
	"github.com/otakulab/animesommelier/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// historyWindow is how many trailing messages feed the next completion.
	historyWindow = 20
)

// Summary is a conversation row plus its message count, for list views.
type Summary struct {
	*store.Conversation
	MessageCount int
}

// Page is one page of a user's conversations.
type Page struct {
	Conversations []*Summary
	Total         int
	HasMore       bool
}

// Service manages conversations.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

// NewService creates a new conversation service.
func NewService(s *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger}
}

// Create starts an empty conversation bound to one persona. With an
// empty title the first turn backfills it from the opening message.
func (s *Service) Create(ctx context.Context, userID string, personaType string, title string) (*store.Conversation, error) {
	if !ai.IsValidPersonaType(personaType) {
		return nil, apperrors.InvalidArgument("unknown persona type")
	}

	now := time.Now().Unix()
	conversation, err := s.store.CreateConversation(ctx, &store.Conversation{
		ID:          uuid.NewString(),
		UserID:      userID,
		PersonaType: personaType,
		Title:       title,
		CreatedTs:   now,
		UpdatedTs:   now,
	})
	if err != nil {
		return nil, apperrors.PersistenceFailure("failed to create conversation", err)
	}
	return conversation, nil
}

// VerifyOwnership loads a conversation and checks the caller owns it.
// Existence is checked before ownership so a missing id is NOT_FOUND,
// never PERMISSION_DENIED.
func (s *Service) VerifyOwnership(ctx context.Context, conversationID string, userID string) (*store.Conversation, error) {
	conversation, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load conversation")
	}
	if conversation == nil {
		return nil, apperrors.NotFound("conversation not found")
	}
	if conversation.UserID != userID {
		return nil, apperrors.PermissionDenied("conversation belongs to another user")
	}
	return conversation, nil
}

// List returns one page of the caller's conversations, newest first,
// each with its message count.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) (*Page, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	conversations, err := s.store.ListConversations(ctx, &store.FindConversation{
		UserID: &userID,
		Limit:  &limit,
		Offset: &offset,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list conversations")
	}

	total, err := s.store.CountConversations(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to count conversations")
	}

	summaries := make([]*Summary, 0, len(conversations))
	if len(conversations) > 0 {
		ids := make([]string, 0, len(conversations))
		for _, c := range conversations {
			ids = append(ids, c.ID)
		}
		counts, err := s.store.CountMessages(ctx, ids)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to count messages")
		}
		for _, c := range conversations {
			summaries = append(summaries, &Summary{Conversation: c, MessageCount: counts[c.ID]})
		}
	}

	return &Page{
		Conversations: summaries,
		Total:         total,
		HasMore:       offset+limit < total,
	}, nil
}

// GetDetail returns one owned conversation and its full message history
// in chronological order.
func (s *Service) GetDetail(ctx context.Context, conversationID string, userID string) (*store.Conversation, []*store.Message, error) {
	conversation, err := s.VerifyOwnership(ctx, conversationID, userID)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.store.ListMessages(ctx, &store.FindMessage{ConversationID: &conversationID})
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load messages")
	}
	return conversation, messages, nil
}

// Delete removes an owned conversation and, through the schema cascade,
// all of its messages.
func (s *Service) Delete(ctx context.Context, conversationID string, userID string) error {
	if _, err := s.VerifyOwnership(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, &store.DeleteConversation{ID: conversationID}); err != nil {
		return apperrors.PersistenceFailure("failed to delete conversation", err)
	}
	return nil
}

// LoadRecentHistory returns the trailing message window as completion
// messages, oldest first.
func (s *Service) LoadRecentHistory(ctx context.Context, conversationID string) ([]ai.Message, error) {
	lastN := historyWindow
	messages, err := s.store.ListMessages(ctx, &store.FindMessage{
		ConversationID: &conversationID,
		LastN:          &lastN,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load history")
	}

	history := make([]ai.Message, 0, len(messages))
	for _, m := range messages {
		history = append(history, ai.Message{Role: string(m.Role), Content: m.Content})
	}
	return history, nil
}

// Touch bumps a conversation's updated timestamp. Failures are logged
// only; list ordering drift is not worth failing a turn over.
func (s *Service) Touch(ctx context.Context, conversationID string) {
	now := time.Now().Unix()
	if _, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:        conversationID,
		UpdatedTs: &now,
	}); err != nil {
		s.logger.Warn("failed to touch conversation", "conversation_id", conversationID, "error", err)
	}
}
