package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/otakulab/animesommelier/internal/errors"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}

var statusByCode = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeInvalidArgument:     http.StatusBadRequest,
	apperrors.ErrCodeUnauthenticated:     http.StatusUnauthorized,
	apperrors.ErrCodePermissionDenied:    http.StatusForbidden,
	apperrors.ErrCodeNotFound:            http.StatusNotFound,
	apperrors.ErrCodeRateLimitExceeded:   http.StatusTooManyRequests,
	apperrors.ErrCodeUpstreamUnavailable: http.StatusServiceUnavailable,
	apperrors.ErrCodePersistenceFailure:  http.StatusInternalServerError,
	apperrors.ErrCodeInternal:            http.StatusInternalServerError,
}

// errorResponse maps a service error onto the HTTP envelope. Only the
// user-safe message crosses the wire; causes go to the log.
func (s *APIV1Service) errorResponse(c echo.Context, err error) error {
	code := apperrors.GetCodeFromError(err, apperrors.ErrCodeInternal)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := "internal server error"
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error_code", string(code),
			"error", err)
	}

	return c.JSON(status, &errorBody{Error: message, StatusCode: status})
}
