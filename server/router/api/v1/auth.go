package v1

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	apperrors "github.com/otakulab/animesommelier/internal/errors"
)

// userIDContextKey is the echo context key holding the authenticated user id.
const userIDContextKey = "user-id"

// AuthMiddleware authenticates the bearer token and stores the subject
// claim as the caller's user id.
func (s *APIV1Service) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := extractBearerToken(c.Request().Header.Get("Authorization"))
		if token == "" {
			return s.errorResponse(c, apperrors.Unauthenticated("missing access token"))
		}

		userID, err := s.verifyAccessToken(token)
		if err != nil {
			return s.errorResponse(c, apperrors.Unauthenticated("invalid access token"))
		}

		c.Set(userIDContextKey, userID)
		return next(c)
	}
}

// RateLimitMiddleware rejects requests beyond the per-user chat budget.
func (s *APIV1Service) RateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.chatLimiter.Allow(currentUserID(c)) {
			return s.errorResponse(c, apperrors.RateLimitExceeded("too many chat requests, slow down"))
		}
		return next(c)
	}
}

func (s *APIV1Service) verifyAccessToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return claims.Subject, nil
}

func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// currentUserID returns the authenticated user id set by AuthMiddleware.
func currentUserID(c echo.Context) string {
	userID, _ := c.Get(userIDContextKey).(string)
	return userID
}
