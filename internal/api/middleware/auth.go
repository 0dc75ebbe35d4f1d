package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

// UserIDKey is the echo.Context key holding the authenticated user id.
const UserIDKey = "user_id"

// Stable failure kinds reported to clients.
const (
	CodeMissingToken = "missing_token"
	CodeBadFormat    = "bad_format"
	CodeInvalidToken = "invalid_token"
)

// FailureHandler renders a rejected request. err wraps one of
// domain.ErrMissingToken, domain.ErrMalformedAuthHeader or domain.ErrInvalidToken.
type FailureHandler func(c echo.Context, err error) error

// TokenVerifier is the part of ports.TokenService the guard needs.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type AuthConfig struct {
	Tokens TokenVerifier
	// OnFailure defaults to returning a 401 *echo.HTTPError that wraps the
	// domain error, leaving rendering to the HTTP error handler.
	OnFailure FailureHandler
}

// Auth validates the bearer token and injects the user id into the context.
func Auth(tokens TokenVerifier) echo.MiddlewareFunc {
	return AuthWithConfig(AuthConfig{Tokens: tokens})
}

func AuthWithConfig(cfg AuthConfig) echo.MiddlewareFunc {
	if cfg.Tokens == nil {
		panic("middleware: auth requires a token service")
	}
	if cfg.OnFailure == nil {
		cfg.OnFailure = defaultFailure
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := authenticate(c.Request().Header.Get(echo.HeaderAuthorization), cfg.Tokens)
			if err != nil {
				return cfg.OnFailure(c, err)
			}
			c.Set(UserIDKey, userID)
			return next(c)
		}
	}
}

func authenticate(header string, tokens TokenVerifier) (string, error) {
	if header == "" {
		return "", domain.ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", domain.ErrMalformedAuthHeader
	}

	userID, err := tokens.Verify(token)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return "", err
		}
		return "", errors.Join(domain.ErrInvalidToken, err)
	}
	return userID, nil
}

// FailureCode maps a guard error to its client-facing kind.
func FailureCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return CodeMissingToken
	case errors.Is(err, domain.ErrMalformedAuthHeader):
		return CodeBadFormat
	default:
		return CodeInvalidToken
	}
}

// FailureMessage is the client-facing text for a guard error.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return "No token provided"
	case errors.Is(err, domain.ErrMalformedAuthHeader):
		return "Invalid token format"
	default:
		return "Invalid token"
	}
}

func defaultFailure(_ echo.Context, err error) error {
	return echo.NewHTTPError(http.StatusUnauthorized, FailureMessage(err)).SetInternal(err)
}
