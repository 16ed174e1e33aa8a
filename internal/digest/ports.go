package digest

import (
	"context"
	"time"

	"github.com/bilgisen/newsdigest/internal/models"
)

// Source finds candidate articles for a topic.
type Source interface {
	FetchCandidates(ctx context.Context, topic string) ([]models.CandidateArticle, error)
}

// Extractor returns the readable text of an article.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Summarizer condenses article text into capsule fields.
type Summarizer interface {
	Summarize(ctx context.Context, text, tone, format string) (*models.ArticleCapsule, error)
}

// Store is the append-only digest collection.
type Store interface {
	LatestDigest(ctx context.Context, subscriberID string) (*models.Digest, error)
	Append(ctx context.Context, d *models.Digest) (string, error)
	ListSubscribers(ctx context.Context) ([]string, error)
	ListDigests(ctx context.Context, subscriberID string, since time.Time) ([]*models.Digest, error)
}

// Preferences reads subscriber settings. Missing subscribers yield
// storage.ErrNotFound.
type Preferences interface {
	GetPreference(ctx context.Context, subscriberID string) (*models.Preference, error)
}

// Archiver mirrors persisted digests to secondary storage.
type Archiver interface {
	Archive(ctx context.Context, d *models.Digest) error
}
