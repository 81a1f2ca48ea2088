package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/otakulab/animesommelier/internal/errors"
	"github.com/otakulab/animesommelier/plugin/ai"
	"github.com/otakulab/animesommelier/plugin/jikan"
	"github.com/otakulab/animesommelier/server/service/catalog"
	"github.com/otakulab/animesommelier/server/service/conversation"
	"github.com/otakulab/animesommelier/store"
)

const (
	// titleRuneLimit caps the auto-generated conversation title.
	titleRuneLimit = 50

	// maxMessageRunes bounds one user message.
	maxMessageRunes = 5000
)

// Service runs chat turns end to end.
type Service struct {
	store         *store.Store
	llm           ai.LLMService
	embedder      ai.EmbeddingService
	catalog       *catalog.Service
	conversations *conversation.Service
	logger        *slog.Logger
}

// NewService creates the chat service. embedder may be nil; turns then
// persist without vectors.
func NewService(
	s *store.Store,
	llm ai.LLMService,
	embedder ai.EmbeddingService,
	cat *catalog.Service,
	conversations *conversation.Service,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:         s,
		llm:           llm,
		embedder:      embedder,
		catalog:       cat,
		conversations: conversations,
		logger:        logger,
	}
}

// RecommendedAnime pairs a hydrated catalog record with the model's
// reasoning for picking it.
type RecommendedAnime struct {
	Anime     *jikan.Anime `json:"anime"`
	Reasoning string       `json:"reasoning"`
}

// TurnResult is the outcome of one processed turn.
type TurnResult struct {
	Conversation     *store.Conversation
	UserMessage      *store.Message
	AssistantMessage *store.Message
	Recommendations  []*RecommendedAnime
}

// ProcessTurn runs one chat turn: ownership check, history load,
// completion, recommendation extraction and hydration, best-effort
// embedding, then a single transactional write of both messages.
func (s *Service) ProcessTurn(ctx context.Context, conversationID, userID, message string) (*TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.InvalidArgument("message must not be empty")
	}
	if utf8.RuneCountInString(message) > maxMessageRunes {
		return nil, apperrors.InvalidArgument("message exceeds the 5000 character limit")
	}

	conv, err := s.conversations.VerifyOwnership(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	history, err := s.conversations.LoadRecentHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	response, err := s.GenerateTurn(ctx, conv.PersonaType, message, history)
	if err != nil {
		return nil, err
	}

	parsed := ParseRecommendations(response)
	display := DisplayMessage(response)

	malIDs := make([]int, 0, len(parsed))
	reasoningByID := make(map[int]string, len(parsed))
	for _, rec := range parsed {
		malIDs = append(malIDs, rec.MALID)
		reasoningByID[rec.MALID] = rec.Reasoning
	}

	// Only picks the catalog could resolve are kept, both as hydrated
	// recommendations and as references on the stored message.
	var references []store.AnimeReference
	var recommendations []*RecommendedAnime
	if len(malIDs) > 0 {
		for _, record := range s.catalog.ResolveMany(ctx, malIDs) {
			references = append(references, store.AnimeReference{MALID: record.Anime.MALID, Title: record.Anime.Title})
			recommendations = append(recommendations, &RecommendedAnime{
				Anime:     record.Anime,
				Reasoning: reasoningByID[record.Anime.MALID],
			})
		}
	}

	userVector, assistantVector := s.embedTurn(ctx, message, display)

	now := time.Now().Unix()
	userMessage := &store.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           store.MessageRoleUser,
		Content:        message,
		Embedding:      userVector,
		CreatedTs:      now,
	}
	assistantMessage := &store.Message{
		ID:              uuid.NewString(),
		ConversationID:  conversationID,
		Role:            store.MessageRoleAssistant,
		Content:         display,
		Embedding:       assistantVector,
		AnimeReferences: references,
		CreatedTs:       now,
	}

	fallbackTitle := ""
	if conv.Title == "" {
		fallbackTitle = truncateTitle(message)
	}

	if err := s.store.CreateTurnMessages(ctx, userMessage, assistantMessage, fallbackTitle); err != nil {
		return nil, apperrors.PersistenceFailure("failed to persist turn", err)
	}
	if fallbackTitle != "" {
		conv.Title = fallbackTitle
	}

	s.conversations.Touch(ctx, conversationID)

	return &TurnResult{
		Conversation:     conv,
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		Recommendations:  recommendations,
	}, nil
}

// embedTurn embeds both turn texts in one batch. Any failure is logged
// and the turn proceeds without vectors.
func (s *Service) embedTurn(ctx context.Context, userText, assistantText string) ([]float32, []float32) {
	if s.embedder == nil {
		return nil, nil
	}
	vectors, err := s.embedder.EmbedBatch(ctx, []string{userText, assistantText})
	if err != nil {
		s.logger.Warn("failed to embed turn messages", "error", err)
		return nil, nil
	}
	if len(vectors) != 2 {
		s.logger.Warn("unexpected embedding batch size", "got", len(vectors))
		return nil, nil
	}
	return vectors[0], vectors[1]
}

func truncateTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= titleRuneLimit {
		return message
	}
	return string(runes[:titleRuneLimit])
}
