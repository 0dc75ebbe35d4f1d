package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mini-ai-studio/studio-api/internal/api/middleware"
	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

// ctxUserID returns the user id injected by the Auth middleware. An empty
// value means the route was mounted without the guard.
func ctxUserID(c echo.Context) (string, error) {
	userID, _ := c.Get(middleware.UserIDKey).(string)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims").SetInternal(domain.ErrMissingToken)
	}
	return userID, nil
}
