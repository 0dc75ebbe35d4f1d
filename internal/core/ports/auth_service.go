package ports

import (
	"context"
	"time"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, email, password string) (string, *domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}

// TokenService issues and verifies stateless session tokens.
type TokenService interface {
	Issue(userID string, ttl time.Duration) (string, error)
	Verify(token string) (string, error)
}
