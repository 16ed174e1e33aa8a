package digest

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/bilgisen/newsdigest/internal/models"
	"github.com/bilgisen/newsdigest/internal/storage"
	"github.com/rs/zerolog"
)

// GenerateResult describes a persisted digest.
type GenerateResult struct {
	DigestID string
	Count    int
	Digest   *models.Digest
}

// Generator produces and persists one digest for one subscriber.
type Generator struct {
	prefs    Preferences
	store    Store
	pipeline *Pipeline
	archiver Archiver
	log      zerolog.Logger
}

func NewGenerator(prefs Preferences, store Store, pipeline *Pipeline) *Generator {
	return &Generator{
		prefs:    prefs,
		store:    store,
		pipeline: pipeline,
		log:      logger.Component("generator"),
	}
}

// WithArchiver mirrors every persisted digest to a. Archive failures are
// logged and never fail the generation.
func (g *Generator) WithArchiver(a Archiver) *Generator {
	g.archiver = a
	return g
}

// Generate runs the pipeline and persists the digest only after every article
// has settled. A context that ends before that point discards the run and
// yields ErrDeadlineExceeded.
func (g *Generator) Generate(ctx context.Context, subscriberID string) (*GenerateResult, error) {
	pref, err := g.preference(ctx, subscriberID)
	if err != nil {
		return nil, err
	}

	d, err := g.pipeline.Process(ctx, subscriberID, pref)
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrDeadlineExceeded, ctxErr)
		}
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}

	id, err := g.store.Append(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("persist digest: %w", err)
	}
	d.ID = id

	g.log.Info().
		Str("subscriber_id", subscriberID).
		Str("digest_id", id).
		Int("count", len(d.ArticleSections)).
		Msg("Digest stored")

	if g.archiver != nil {
		if err := g.archiver.Archive(ctx, d); err != nil {
			g.log.Warn().Err(err).Str("digest_id", id).Msg("Failed to archive digest")
		}
	}

	return &GenerateResult{DigestID: id, Count: len(d.ArticleSections), Digest: d}, nil
}

func (g *Generator) preference(ctx context.Context, subscriberID string) (models.Preference, error) {
	pref, err := g.prefs.GetPreference(ctx, subscriberID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return models.DefaultPreference(), nil
	case err != nil:
		return models.Preference{}, fmt.Errorf("load preference: %w", err)
	case pref == nil:
		return models.DefaultPreference(), nil
	}
	return pref.WithDefaults(), nil
}
