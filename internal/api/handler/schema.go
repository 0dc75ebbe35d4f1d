package handler

import (
	"github.com/mini-ai-studio/studio-api/internal/core/domain"
	"github.com/mini-ai-studio/studio-api/internal/core/ports"
)

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254" example:"alice@example.com"`
	Password string `json:"password" validate:"required,min=6,max=72"  example:"pw123456"`
}

// loginRequest only checks presence; a short password is just a wrong one.
type loginRequest struct {
	Email    string `json:"email"    validate:"required" example:"alice@example.com"`
	Password string `json:"password" validate:"required" example:"pw123456"`
}

type userResponse struct {
	ID    string `json:"id"    example:"665f1c2e8b3f4a0012345678"`
	Email string `json:"email" example:"alice@example.com"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type verifyResponse struct {
	Valid bool          `json:"valid"`
	User  *userResponse `json:"user,omitempty"`
	Code  string        `json:"code,omitempty"`
}

type uploadResponse struct {
	Message    string               `json:"message"`
	Generation ports.GenerationView `json:"generation"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email}
}
