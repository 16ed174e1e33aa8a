package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bilgisen/newsdigest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenSubscribers struct {
	Store
}

func (brokenSubscribers) ListSubscribers(ctx context.Context) ([]string, error) {
	return nil, errors.New("scan failed")
}

func TestBatchRun(t *testing.T) {
	f := newFixture()
	f.store.SetPreference("alice", models.Preference{Topic: "Rust"})
	f.store.SetPreference("bob", models.Preference{Topic: "Nothing"})
	f.store.SetPreference("carol", models.Preference{Topic: "Broken"})
	f.store.SetPreference("dave", models.Preference{Topic: "Rust"})

	f.source.articles["Rust"] = articles(2)
	f.source.articles["Broken"] = []models.CandidateArticle{{URL: "https://boom.example/1", Title: "Boom"}}
	f.extractor.panics = map[string]bool{"https://boom.example/1": true}

	// dave already refreshed manually; the scheduled run ignores the cooldown.
	f.store.Seed(&models.Digest{
		ID:                  "manual",
		SubscriberID:        "dave",
		ArticleSections:     []models.ArticleCapsule{{KeyTakeaway: "t"}},
		OverallKeyTakeaways: []string{"t"},
		CreatedAt:           time.Now().Add(-time.Minute),
	})

	report, err := NewBatch(f.store, f.generator, 2, time.Minute).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.NoArticles)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Skipped)

	assert.Equal(t, 1, f.store.Count("alice"))
	assert.Zero(t, f.store.Count("bob"))
	assert.Zero(t, f.store.Count("carol"))
	assert.Equal(t, 2, f.store.Count("dave"))
}

func TestBatchRecoversGeneratorPanic(t *testing.T) {
	f := newFixture()
	f.store.SetPreference("alice", models.Preference{})
	f.store.SetPreference("bob", models.Preference{})
	f.source.articles[models.DefaultTopic] = articles(1)

	b := NewBatch(f.store, f.generator, 1, time.Minute)
	b.generator = &Generator{prefs: f.store, store: f.store, log: f.generator.log}

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
}

func TestBatchDeadlineSkipsRemaining(t *testing.T) {
	f := newFixture()
	for _, id := range []string{"a", "b", "c"} {
		f.store.SetPreference(id, models.Preference{})
	}
	f.source.articles[models.DefaultTopic] = articles(1)
	f.extractor.block = true

	report, err := NewBatch(f.store, f.generator, 1, 50*time.Millisecond).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Succeeded)
}

func TestBatchListSubscribersError(t *testing.T) {
	f := newFixture()
	_, err := NewBatch(brokenSubscribers{Store: f.store}, f.generator, 1, time.Minute).Run(context.Background())
	assert.Error(t, err)
}

func TestBatchEmpty(t *testing.T) {
	f := newFixture()
	report, err := NewBatch(f.store, f.generator, 0, 0).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Total)
}
