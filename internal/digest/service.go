package digest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/bilgisen/newsdigest/internal/models"
	"github.com/rs/zerolog"
)

// DefaultManualTimeout bounds one on-demand generation.
const DefaultManualTimeout = 5 * time.Minute

// NoArticlesMessage is returned to the caller when the topic has no news.
const NoArticlesMessage = "No articles found for topic"

// OnDemandResult is the response of a subscriber-initiated generation.
type OnDemandResult struct {
	Success  bool   `json:"success"`
	Count    int    `json:"count,omitempty"`
	DigestID string `json:"digestId,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Service is the subscriber-facing entry point: cooldown, deadline and
// digest history reads.
type Service struct {
	guard     *Guard
	generator *Generator
	store     Store
	timeout   time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func NewService(guard *Guard, generator *Generator, store Store, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultManualTimeout
	}
	return &Service{
		guard:     guard,
		generator: generator,
		store:     store,
		timeout:   timeout,
		now:       time.Now,
		log:       logger.Component("digest_service"),
	}
}

// GenerateOnDemand generates a digest for an authenticated subscriber unless
// the cooldown is active. An empty topic result is a soft failure reported in
// the result, not as an error.
func (s *Service) GenerateOnDemand(ctx context.Context, subscriberID string) (*OnDemandResult, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, ErrUnauthenticated
	}

	if err := s.guard.Check(ctx, subscriberID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.generator.Generate(ctx, subscriberID)
	switch {
	case errors.Is(err, ErrNoArticles):
		return &OnDemandResult{Success: false, Message: NoArticlesMessage}, nil
	case err != nil:
		s.log.Error().Err(err).Str("subscriber_id", subscriberID).Msg("On-demand generation failed")
		return nil, err
	}

	return &OnDemandResult{Success: true, Count: res.Count, DigestID: res.DigestID}, nil
}

// History returns the subscriber's digests from the last days days, newest
// first.
func (s *Service) History(ctx context.Context, subscriberID string, days int) ([]*models.Digest, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, ErrUnauthenticated
	}
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	return s.store.ListDigests(ctx, subscriberID, since)
}

// Latest returns the most recent digest, or nil when there is none.
func (s *Service) Latest(ctx context.Context, subscriberID string) (*models.Digest, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, ErrUnauthenticated
	}
	return s.store.LatestDigest(ctx, subscriberID)
}
