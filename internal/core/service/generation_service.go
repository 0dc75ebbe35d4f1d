package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
	"github.com/mini-ai-studio/studio-api/internal/core/ports"
)

const (
	// RecentLimit is the fixed size of the recent-generations history.
	RecentLimit = 5

	// DefaultMaxUploadBytes caps an image when no limit is configured.
	DefaultMaxUploadBytes int64 = 5 << 20
)

var (
	allowedExtensions = map[string]struct{}{".jpeg": {}, ".jpg": {}, ".png": {}}
	allowedDeclared   = regexp.MustCompile(`jpeg|jpg|png`)
)

// GenerationConfig tunes the upload pipeline. Cache is optional.
type GenerationConfig struct {
	MaxUploadBytes int64
	Cache          ports.RecentCache
}

// GenerationService validates uploads, runs the generator and records the
// result. Persisting the record is always the last step.
type GenerationService struct {
	repo      ports.GenerationRepository
	store     ports.ContentStore
	generator ports.ImageGenerator
	cache     ports.RecentCache
	maxBytes  int64
	log       zerolog.Logger
	now       func() time.Time
}

func NewGenerationService(
	repo ports.GenerationRepository,
	store ports.ContentStore,
	generator ports.ImageGenerator,
	cfg GenerationConfig,
	log zerolog.Logger,
) *GenerationService {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &GenerationService{
		repo:      repo,
		store:     store,
		generator: generator,
		cache:     cfg.Cache,
		maxBytes:  cfg.MaxUploadBytes,
		log:       log,
		now:       time.Now,
	}
}

// Upload stores the image, simulates generation and records the result.
func (s *GenerationService) Upload(ctx context.Context, in ports.UploadInput) (*ports.GenerationView, error) {
	// 1. Presence: both the file and a non-blank prompt, or nothing happens.
	if in.File == nil || strings.TrimSpace(in.Prompt) == "" {
		return nil, domain.ErrMissingUploadInput
	}

	// 2. Declared type and extension.
	ext, err := checkDeclaredType(in.Filename, in.ContentType)
	if err != nil {
		return nil, err
	}

	// 3. Size, both declared and actual.
	if in.Size > s.maxBytes {
		return nil, domain.ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(in.File, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, domain.ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, domain.ErrMissingUploadInput
	}

	// 4. Sniffed content must agree with the declared type.
	detected := mimetype.Detect(data)
	if !detected.Is("image/png") && !detected.Is("image/jpeg") {
		s.log.Debug().Str("detected", detected.String()).Str("declared", in.ContentType).Msg("upload content rejected")
		return nil, domain.ErrUnsupportedMediaType
	}

	sourceKey := objectKey("originals", "", ext, s.now())
	if _, err := s.store.Put(ctx, sourceKey, bytes.NewReader(data), detected.String()); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	out, err := s.generator.Generate(ctx, sourceKey, in.Prompt)
	if err != nil {
		s.discard(sourceKey)
		return nil, fmt.Errorf("generate: %w", err)
	}

	g := &domain.Generation{
		UserID:      in.UserID,
		Prompt:      in.Prompt,
		ImagePath:   out.Path,
		SourceKey:   sourceKey,
		ContentType: detected.String(),
		SizeBytes:   int64(len(data)),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, g); err != nil {
		s.discard(sourceKey, out.Key)
		return nil, fmt.Errorf("record generation: %w", err)
	}

	s.invalidateRecent(ctx, in.UserID)

	s.log.Info().
		Str("user_id", in.UserID).
		Str("generation_id", g.ID).
		Str("image_path", g.ImagePath).
		Msg("generation created")

	view := toView(*g)
	return &view, nil
}

// ListRecent returns the user's newest generations, at most RecentLimit.
func (s *GenerationService) ListRecent(ctx context.Context, userID string) ([]ports.GenerationView, error) {
	var (
		version   int64
		cacheable bool
	)
	if s.cache != nil {
		items, v, ok, err := s.cache.Get(ctx, userID)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("user_id", userID).Msg("recent cache read failed, using store")
		case ok:
			return toViews(items), nil
		default:
			version, cacheable = v, true
		}
	}

	items, err := s.repo.ListRecent(ctx, userID, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}

	// The version was read before the query; an upload finishing in between
	// advances it and the entry written here is never served.
	if cacheable {
		if err := s.cache.Set(ctx, userID, version, items); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("recent cache write failed")
		}
	}
	return toViews(items), nil
}

// invalidateRecent advances the user's cache version after a new record. A
// failed attempt is retried once outside the request context.
func (s *GenerationService) invalidateRecent(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	err := s.cache.Invalidate(ctx, userID)
	if err == nil {
		return
	}
	s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to invalidate recent cache, retrying")

	retryCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Invalidate(retryCtx, userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("recent cache left stale")
	}
}

// discard removes stored objects after a failed upload. It runs detached from
// the request context, which may already be cancelled.
func (s *GenerationService) discard(keys ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, k := range keys {
		if k == "" {
			continue
		}
		if err := s.store.Delete(ctx, k); err != nil {
			s.log.Warn().Err(err).Str("key", k).Msg("failed to discard stored object")
		}
	}
}

// checkDeclaredType validates the client-declared filename and media type and
// returns the normalised extension.
func checkDeclaredType(filename, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", domain.ErrUnsupportedMediaType
	}
	if !allowedDeclared.MatchString(strings.ToLower(contentType)) {
		return "", domain.ErrUnsupportedMediaType
	}
	return ext, nil
}

func toView(g domain.Generation) ports.GenerationView {
	return ports.GenerationView{
		ID:        g.ID,
		Prompt:    g.Prompt,
		ImagePath: g.ImagePath,
		CreatedAt: g.CreatedAt,
	}
}

func toViews(items []domain.Generation) []ports.GenerationView {
	if len(items) > RecentLimit {
		items = items[:RecentLimit]
	}
	out := make([]ports.GenerationView, len(items))
	for i, g := range items {
		out[i] = toView(g)
	}
	return out
}
