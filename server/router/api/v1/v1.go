// Package v1 exposes the REST API. Every route except the health check
// sits behind bearer authentication; the chat route additionally sits
// behind a per-user rate limit.
package v1

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/otakulab/animesommelier/internal/profile"
	"github.com/otakulab/animesommelier/server/middleware"
	"github.com/otakulab/animesommelier/server/service/catalog"
	"github.com/otakulab/animesommelier/server/service/chat"
	"github.com/otakulab/animesommelier/server/service/conversation"
	"github.com/otakulab/animesommelier/store"
)

// chatRequestsPerMinute bounds how fast one user can burn completion
// tokens. Read-only routes are not limited.
const chatRequestsPerMinute = 30

type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	ChatService         *chat.Service
	ConversationService *conversation.Service
	CatalogService      *catalog.Service

	logger      *slog.Logger
	chatLimiter *middleware.RateLimiter
}

// NewAPIV1Service creates the API service with its route dependencies.
func NewAPIV1Service(
	secret string,
	profile *profile.Profile,
	store *store.Store,
	chatService *chat.Service,
	conversationService *conversation.Service,
	catalogService *catalog.Service,
	logger *slog.Logger,
) *APIV1Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIV1Service{
		Secret:              secret,
		Profile:             profile,
		Store:               store,
		ChatService:         chatService,
		ConversationService: conversationService,
		CatalogService:      catalogService,
		logger:              logger,
		chatLimiter:         middleware.NewRateLimiter(rate.Every(time.Minute/chatRequestsPerMinute), chatRequestsPerMinute),
	}
}

// Register mounts all v1 routes on the given Echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	group := echoServer.Group("/api/v1", s.AuthMiddleware)

	group.POST("/chat", s.PostChat, s.RateLimitMiddleware)

	group.GET("/conversations", s.ListConversations)
	group.POST("/conversations", s.CreateConversation)
	group.GET("/conversations/:id", s.GetConversation)
	group.DELETE("/conversations/:id", s.DeleteConversation)

	group.GET("/catalog/search", s.SearchCatalog)
	group.GET("/catalog/:id", s.GetCatalogEntry)

	group.GET("/personas", s.ListPersonas)
}
