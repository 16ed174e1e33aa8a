package extract

import (
	"context"
	"errors"
	"time"

	"github.com/bilgisen/newsdigest/internal/cache"
	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/bilgisen/newsdigest/internal/utils"
	"github.com/rs/zerolog"
)

// Cached remembers successful extractions so the same URL is scraped at most
// once per TTL across the on-demand and scheduled paths. Cache failures never
// fail the extraction.
type Cached struct {
	next  Extractor
	cache cache.TextCache
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCached(next Extractor, c cache.TextCache, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: c,
		ttl:   ttl,
		log:   logger.Component("extract.cache"),
	}
}

func (c *Cached) Extract(ctx context.Context, url string) (string, error) {
	key := utils.Fingerprint(url)

	text, err := c.cache.Get(ctx, key)
	if err == nil && text != "" {
		c.log.Debug().Str("url", url).Msg("Extraction cache hit")
		return text, nil
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		c.log.Warn().Err(err).Str("url", url).Msg("Extraction cache read failed")
	}

	text, err = c.next.Extract(ctx, url)
	if err != nil {
		return "", err
	}

	if setErr := c.cache.Set(ctx, key, text, c.ttl); setErr != nil {
		c.log.Warn().Err(setErr).Str("url", url).Msg("Extraction cache write failed")
	}
	return text, nil
}
