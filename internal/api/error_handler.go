package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mini-ai-studio/studio-api/internal/api/middleware"
	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

// Error kinds rendered in the "code" field.
const (
	codeValidation       = "validation_error"
	codeUnsupportedMedia = "unsupported_media_type"
	codePayloadTooLarge  = "payload_too_large"
	codeAuth             = "auth_error"
	codeConflict         = "conflict_error"
	codeSimulated        = "simulated_service_error"
	codeStoreUnavailable = "store_unavailable"
	codeUnexpected       = "unexpected_error"
	codeHTTP             = "http_error"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and error kind.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<kind>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, resp := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Known domain errors first; echo.HTTPError unwraps to its internal error.
	switch {
	case errors.Is(err, domain.ErrMissingUploadInput):
		return http.StatusBadRequest, errorResponse{domain.ErrMissingUploadInput.Error(), codeValidation}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{validationMessage(err), codeValidation}
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, errorResponse{domain.ErrUnsupportedMediaType.Error(), codeUnsupportedMedia}
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, errorResponse{domain.ErrFileTooLarge.Error(), codePayloadTooLarge}
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, errorResponse{domain.ErrEmailTaken.Error(), codeConflict}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{"invalid credentials", codeAuth}
	case errors.Is(err, domain.ErrMissingToken),
		errors.Is(err, domain.ErrMalformedAuthHeader),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusUnauthorized, errorResponse{middleware.FailureMessage(err), middleware.FailureCode(err)}
	case errors.Is(err, domain.ErrSimulatedFailure), errors.Is(err, domain.ErrGenerationTimeout):
		logRequestError(log, c, err, "generation failed")
		msg := domain.ErrSimulatedFailure.Error()
		if errors.Is(err, domain.ErrGenerationTimeout) {
			msg = domain.ErrGenerationTimeout.Error()
		}
		return http.StatusInternalServerError, errorResponse{msg, codeSimulated}
	case errors.Is(err, domain.ErrStoreUnavailable):
		logRequestError(log, c, err, "store unavailable")
		return http.StatusInternalServerError, errorResponse{"service temporarily unavailable", codeStoreUnavailable}
	}

	// Echo's own errors (404 from router, body limit, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := codeHTTP
		if he.Code == http.StatusRequestEntityTooLarge {
			code = codePayloadTooLarge
		}
		return he.Code, errorResponse{fmt.Sprintf("%v", he.Message), code}
	}

	// Unexpected error: log the real cause, return a generic message.
	logRequestError(log, c, err, "unhandled error")
	return http.StatusInternalServerError, errorResponse{"internal server error", codeUnexpected}
}

// validationMessage strips the sentinel prefix so clients see only the
// field-level detail added by the validator.
func validationMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Internal != nil {
		err = he.Internal
	}
	return strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": ")
}

func logRequestError(log zerolog.Logger, c echo.Context, err error, msg string) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg(msg)
}
