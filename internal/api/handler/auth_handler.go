package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mini-ai-studio/studio-api/internal/api/metrics"
	"github.com/mini-ai-studio/studio-api/internal/api/middleware"
	"github.com/mini-ai-studio/studio-api/internal/core/domain"
	"github.com/mini-ai-studio/studio-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Email and password"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid_input").Inc()
		return err
	}

	token, user, err := h.authService.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", authResult(err)).Inc()
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	return c.JSON(http.StatusCreated, authResponse{User: toUserResponse(user), Token: token})
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid_input").Inc()
		return err
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", authResult(err)).Inc()
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return c.JSON(http.StatusOK, authResponse{User: toUserResponse(user), Token: token})
}

// Verify reports whether the bearer token is valid. Mount it behind
// middleware.AuthWithConfig with VerifyFailure as OnFailure.
//
// @Summary      Verify session token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  verifyResponse
// @Failure      401   {object}  verifyResponse
// @Router       /auth/verify [get]
func (h *AuthHandler) Verify(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return VerifyFailure(c, domain.ErrMissingToken)
	}

	user, err := h.authService.CurrentUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return VerifyFailure(c, domain.ErrInvalidToken)
		}
		return err
	}

	u := toUserResponse(user)
	return c.JSON(http.StatusOK, verifyResponse{Valid: true, User: &u})
}

// VerifyFailure renders a rejected /auth/verify request.
func VerifyFailure(c echo.Context, err error) error {
	return c.JSON(http.StatusUnauthorized, verifyResponse{Valid: false, Code: middleware.FailureCode(err)})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrInvalidInput)
	}
	switch r := req.(type) {
	case *registerRequest:
		r.Email = strings.TrimSpace(r.Email)
	case *loginRequest:
		r.Email = strings.TrimSpace(r.Email)
	}
	return c.Validate(req)
}

func authResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "error"
	}
}
