package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
	"github.com/mini-ai-studio/studio-api/internal/core/ports"
)

const (
	DefaultGenerationDelay   = 2 * time.Second
	DefaultGenerationTimeout = 30 * time.Second
)

// GeneratorConfig controls the simulated generation step.
type GeneratorConfig struct {
	Delay       time.Duration
	Timeout     time.Duration
	FailureRate float64
}

// SimulatedGenerator stands in for an image model: it waits, occasionally
// fails, and otherwise copies the source image into the generated area.
type SimulatedGenerator struct {
	store ports.ContentStore
	cfg   GeneratorConfig
	log   zerolog.Logger
	roll  func() float64
	now   func() time.Time
}

func NewSimulatedGenerator(store ports.ContentStore, cfg GeneratorConfig, log zerolog.Logger) *SimulatedGenerator {
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGenerationTimeout
	}
	return &SimulatedGenerator{
		store: store,
		cfg:   cfg,
		log:   log,
		roll:  rand.Float64,
		now:   time.Now,
	}
}

func (g *SimulatedGenerator) Generate(ctx context.Context, sourceKey, prompt string) (ports.GeneratedImage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if err := g.wait(ctx); err != nil {
		return ports.GeneratedImage{}, err
	}

	if g.cfg.FailureRate > 0 && g.roll() < g.cfg.FailureRate {
		g.log.Warn().Str("source_key", sourceKey).Msg("simulated generation failure")
		return ports.GeneratedImage{}, domain.ErrSimulatedFailure
	}

	key := objectKey("generated", "gen-", path.Ext(sourceKey), g.now())
	publicPath, err := g.store.Copy(ctx, sourceKey, key)
	if err != nil {
		return ports.GeneratedImage{}, fmt.Errorf("copy generated image: %w", err)
	}

	g.log.Debug().
		Str("source_key", sourceKey).
		Str("key", key).
		Int("prompt_len", len(prompt)).
		Msg("image generated")
	return ports.GeneratedImage{Key: key, Path: publicPath}, nil
}

func (g *SimulatedGenerator) wait(ctx context.Context) error {
	if g.cfg.Delay == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.cfg.Delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.ErrGenerationTimeout
		}
		return ctx.Err()
	}
}
