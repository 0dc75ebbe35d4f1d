package ports

import (
	"context"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

// UserRepository persists user credentials.
type UserRepository interface {
	// Create inserts a new user. It returns domain.ErrEmailTaken when the email
	// already exists; uniqueness is enforced by the store, not by a prior lookup.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
