package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stubs shared by the service tests
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	seq     int
	findErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return nil, domain.ErrEmailTaken
	}
	r.seq++
	stored := cloneUser(user)
	stored.ID = fmt.Sprintf("user-%d", r.seq)
	r.byEmail[stored.Email] = stored
	return cloneUser(stored), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type stubGenerationRepo struct {
	mu        sync.Mutex
	items     []domain.Generation
	createErr error
	listCalls int
}

func (r *stubGenerationRepo) Create(_ context.Context, g *domain.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	g.ID = fmt.Sprintf("gen-%d", len(r.items)+1)
	r.items = append(r.items, *g)
	return nil
}

// ListRecent mirrors the Mongo sort: created_at desc, later inserts first on ties.
func (r *stubGenerationRepo) ListRecent(_ context.Context, userID string, limit int) ([]domain.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := []domain.Generation{}
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].UserID == userID {
			out = append(out, r.items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubGenerationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	copyErr error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "/uploads/" + key, nil
}

func (s *memStore) Copy(_ context.Context, src, dst string) (string, error) {
	if s.copyErr != nil {
		return "", s.copyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[src]
	if !ok {
		return "", errors.New("no such object")
	}
	s.objects[dst] = bytes.Clone(data)
	return "/uploads/" + dst, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

type cacheEntry struct {
	version int64
	items   []domain.Generation
}

type stubCache struct {
	mu          sync.Mutex
	entries     map[string]cacheEntry
	versions    map[string]int64
	getErr      error
	failInvals  int
	invalidated []string
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]cacheEntry), versions: make(map[string]int64)}
}

func (c *stubCache) Get(_ context.Context, userID string) ([]domain.Generation, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, 0, false, c.getErr
	}
	current := c.versions[userID]
	e, ok := c.entries[userID]
	if !ok || e.version != current {
		return nil, current, false, nil
	}
	return e.items, current, true, nil
}

func (c *stubCache) Set(_ context.Context, userID string, version int64, items []domain.Generation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = cacheEntry{version: version, items: append([]domain.Generation(nil), items...)}
	return nil
}

func (c *stubCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failInvals > 0 {
		c.failInvals--
		return errors.New("redis down")
	}
	c.versions[userID]++
	delete(c.entries, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)
