// Package server assembles the HTTP server: echo instance, base
// middleware, health check, and the v1 API routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/otakulab/animesommelier/internal/profile"
	"github.com/otakulab/animesommelier/plugin/ai"
	"github.com/otakulab/animesommelier/plugin/jikan"
	apiv1 "github.com/otakulab/animesommelier/server/router/api/v1"
	"github.com/otakulab/animesommelier/server/service/catalog"
	"github.com/otakulab/animesommelier/server/service/chat"
	"github.com/otakulab/animesommelier/server/service/conversation"
	"github.com/otakulab/animesommelier/store"
)

type Server struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	logger     *slog.Logger
}

// NewServer wires the full service graph and mounts the routes.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": profile.Version})
	})

	aiConfig := ai.NewConfigFromProfile(profile)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ai config: %w", err)
	}
	llmService := ai.NewLLMService(&aiConfig.LLM)

	// The embedder is optional; turns persist without vectors when the
	// embedding credentials are absent.
	var embeddingService ai.EmbeddingService
	if aiConfig.Embedding.APIKey != "" {
		embeddingService = ai.NewEmbeddingService(&aiConfig.Embedding)
	} else {
		logger.Warn("embedding service disabled, messages will be stored without vectors")
	}

	jikanClient := jikan.NewClient(profile.JikanBaseURL)
	catalogService := catalog.NewService(store, jikanClient, logger)
	conversationService := conversation.NewService(store, logger)
	chatService := chat.NewService(store, llmService, embeddingService, catalogService, conversationService, logger)

	apiService := apiv1.NewAPIV1Service(
		profile.Secret, profile, store,
		chatService, conversationService, catalogService, logger)
	apiService.Register(echoServer)

	return &Server{
		Secret:     profile.Secret,
		Profile:    profile,
		Store:      store,
		echoServer: echoServer,
		logger:     logger,
	}, nil
}

// Start begins serving. It returns immediately; failures after startup
// arrive on the returned channel.
func (s *Server) Start(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		s.logger.Info("server listening", "address", address, "mode", s.Profile.Mode)
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	return errCh
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to shut down server gracefully", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close store", "error", err)
	}
	s.logger.Info("server shut down")
}
