package ports

import (
	"context"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

// GenerationRepository is the append-only store of generation records.
type GenerationRepository interface {
	Create(ctx context.Context, g *domain.Generation) error
	// ListRecent returns at most limit records owned by userID, newest first.
	// It returns an empty slice when the user has none.
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.Generation, error)
}

// RecentCache caches the result of ListRecent per user.
//
// Every user has a version that Invalidate advances. Get returns the current
// version even on a miss, and Set stores items under the version the caller
// read before querying the repository. An entry whose version is no longer
// current is never returned as a hit.
type RecentCache interface {
	Get(ctx context.Context, userID string) (items []domain.Generation, version int64, ok bool, err error)
	Set(ctx context.Context, userID string, version int64, items []domain.Generation) error
	Invalidate(ctx context.Context, userID string) error
}
