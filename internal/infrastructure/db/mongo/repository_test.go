package mongo

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

// testDatabase connects to MONGO_TEST_URI and returns a throwaway database.
// Tests are skipped when the variable is unset.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	name := fmt.Sprintf("studio_test_%d", time.Now().UnixNano())
	client, db, err := Connect(ctx, Config{URI: uri, Database: name})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	require.NoError(t, EnsureIndexes(ctx, db))
	return db
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository(testDatabase(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.User{Email: "alice@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	_, err = repo.FindByEmail(ctx, "ALICE@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = repo.FindByID(ctx, "not-an-object-id")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(testDatabase(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{Email: "bob@example.com", PasswordHash: "first"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Email: "bob@example.com", PasswordHash: "second"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	stored, err := repo.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "first", stored.PasswordHash)
}

func TestUserRepository_ConcurrentRegistration(t *testing.T) {
	repo := NewUserRepository(testDatabase(t))
	ctx := context.Background()

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		taken   int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, &domain.User{Email: "race@example.com", PasswordHash: fmt.Sprint(i)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case assert.ErrorIs(t, err, domain.ErrEmailTaken):
				taken++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, taken)
}

func TestGenerationRepository_ListRecent(t *testing.T) {
	repo := NewGenerationRepository(testDatabase(t))
	ctx := context.Background()
	require.NoError(t, repo.DeleteAll(ctx))

	empty, err := repo.ListRecent(ctx, "user-1", 5)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 1; i <= 7; i++ {
		g := &domain.Generation{
			UserID:    "user-1",
			Prompt:    fmt.Sprintf("prompt %d", i),
			ImagePath: fmt.Sprintf("/uploads/generated/gen-%d.png", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, g))
		assert.NotEmpty(t, g.ID)
	}
	require.NoError(t, repo.Create(ctx, &domain.Generation{UserID: "user-2", Prompt: "other", ImagePath: "/x.png", CreatedAt: base}))

	recent, err := repo.ListRecent(ctx, "user-1", 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	for i, want := range []string{"prompt 7", "prompt 6", "prompt 5", "prompt 4", "prompt 3"} {
		assert.Equal(t, want, recent[i].Prompt)
		assert.Equal(t, "user-1", recent[i].UserID)
	}
}

func TestGenerationRepository_TiesFavourLaterInsert(t *testing.T) {
	repo := NewGenerationRepository(testDatabase(t))
	ctx := context.Background()

	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &domain.Generation{UserID: "u", Prompt: "first", ImagePath: "/a.png", CreatedAt: at}))
	require.NoError(t, repo.Create(ctx, &domain.Generation{UserID: "u", Prompt: "second", ImagePath: "/b.png", CreatedAt: at}))

	recent, err := repo.ListRecent(ctx, "u", 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Prompt)
}

func TestGenerationRepository_DeleteAll(t *testing.T) {
	repo := NewGenerationRepository(testDatabase(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Generation{UserID: "u", Prompt: "p", ImagePath: "/a.png"}))
	require.NoError(t, repo.DeleteAll(ctx))

	recent, err := repo.ListRecent(ctx, "u", 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
