package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/otakulab/animesommelier/internal/errors"
	"github.com/otakulab/animesommelier/store"
)

type conversationBody struct {
	ID           string `json:"id"`
	PersonaType  string `json:"personaType"`
	Title        string `json:"title"`
	CreatedTs    int64  `json:"createdTs"`
	UpdatedTs    int64  `json:"updatedTs"`
	MessageCount *int   `json:"messageCount,omitempty"`
}

type messageBody struct {
	ID              string                 `json:"id"`
	Role            string                 `json:"role"`
	Content         string                 `json:"content"`
	AnimeReferences []store.AnimeReference `json:"animeReferences,omitempty"`
	CreatedTs       int64                  `json:"createdTs"`
}

type listConversationsResponse struct {
	Conversations []*conversationBody `json:"conversations"`
	Total         int                 `json:"total"`
	HasMore       bool                `json:"hasMore"`
}

type createConversationRequest struct {
	PersonaType string `json:"personaType"`
	Title       string `json:"title"`
}

type conversationDetailResponse struct {
	Conversation *conversationBody `json:"conversation"`
	Messages     []*messageBody    `json:"messages"`
}

func toConversationBody(c *store.Conversation, messageCount *int) *conversationBody {
	return &conversationBody{
		ID:           c.ID,
		PersonaType:  c.PersonaType,
		Title:        c.Title,
		CreatedTs:    c.CreatedTs,
		UpdatedTs:    c.UpdatedTs,
		MessageCount: messageCount,
	}
}

func toMessageBody(m *store.Message) *messageBody {
	return &messageBody{
		ID:              m.ID,
		Role:            string(m.Role),
		Content:         m.Content,
		AnimeReferences: m.AnimeReferences,
		CreatedTs:       m.CreatedTs,
	}
}

// ListConversations returns one page of the caller's conversations.
func (s *APIV1Service) ListConversations(c echo.Context) error {
	limit := intQueryParam(c, "limit", 0)
	offset := intQueryParam(c, "offset", 0)

	page, err := s.ConversationService.List(c.Request().Context(), currentUserID(c), limit, offset)
	if err != nil {
		return s.errorResponse(c, err)
	}

	conversations := make([]*conversationBody, 0, len(page.Conversations))
	for _, summary := range page.Conversations {
		count := summary.MessageCount
		conversations = append(conversations, toConversationBody(summary.Conversation, &count))
	}
	return c.JSON(http.StatusOK, &listConversationsResponse{
		Conversations: conversations,
		Total:         page.Total,
		HasMore:       page.HasMore,
	})
}

// CreateConversation starts an empty conversation for the caller.
func (s *APIV1Service) CreateConversation(c echo.Context) error {
	req := &createConversationRequest{}
	if err := c.Bind(req); err != nil {
		return s.errorResponse(c, apperrors.InvalidArgument("malformed request body"))
	}

	created, err := s.ConversationService.Create(c.Request().Context(), currentUserID(c), req.PersonaType, req.Title)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, toConversationBody(created, nil))
}

// GetConversation returns one owned conversation with its full history.
func (s *APIV1Service) GetConversation(c echo.Context) error {
	conv, messages, err := s.ConversationService.GetDetail(c.Request().Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		return s.errorResponse(c, err)
	}

	bodies := make([]*messageBody, 0, len(messages))
	for _, m := range messages {
		bodies = append(bodies, toMessageBody(m))
	}
	return c.JSON(http.StatusOK, &conversationDetailResponse{
		Conversation: toConversationBody(conv, nil),
		Messages:     bodies,
	})
}

// DeleteConversation removes an owned conversation and its messages.
func (s *APIV1Service) DeleteConversation(c echo.Context) error {
	if err := s.ConversationService.Delete(c.Request().Context(), c.Param("id"), currentUserID(c)); err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "deleted"})
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
