package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/otakulab/animesommelier/internal/errors"
	"github.com/otakulab/animesommelier/internal/observability"
	"github.com/otakulab/animesommelier/server/service/chat"
)

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type chatResponse struct {
	Message         string                   `json:"message"`
	ConversationID  string                   `json:"conversationId"`
	Recommendations []*chat.RecommendedAnime `json:"recommendations,omitempty"`
}

// PostChat runs one chat turn in an owned conversation.
func (s *APIV1Service) PostChat(c echo.Context) error {
	req := &chatRequest{}
	if err := c.Bind(req); err != nil {
		return s.errorResponse(c, apperrors.InvalidArgument("malformed request body"))
	}
	if req.ConversationID == "" {
		return s.errorResponse(c, apperrors.InvalidArgument("conversationId is required"))
	}

	userID := currentUserID(c)
	reqCtx := observability.NewRequestContext(s.logger, "", userID)
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	result, err := s.ChatService.ProcessTurn(ctx, req.ConversationID, userID, req.Message)
	if err != nil {
		reqCtx.Error("chat turn failed", err,
			slog.String(observability.LogFieldConversationID, req.ConversationID),
			slog.String(observability.LogFieldErrorCode, string(apperrors.GetCodeFromError(err, apperrors.ErrCodeInternal))))
		return s.errorResponse(c, err)
	}

	reqCtx.Persona = result.Conversation.PersonaType
	reqCtx.Info("chat turn completed",
		slog.String(observability.LogFieldConversationID, req.ConversationID),
		slog.Int(observability.LogFieldMessageLen, len(req.Message)),
		slog.Int("recommendations", len(result.Recommendations)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return c.JSON(http.StatusOK, &chatResponse{
		Message:         result.AssistantMessage.Content,
		ConversationID:  result.Conversation.ID,
		Recommendations: result.Recommendations,
	})
}
