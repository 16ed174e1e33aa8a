package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bilgisen/newsdigest/internal/models"
	"github.com/bilgisen/newsdigest/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store      *storage.Memory
	source     *fakeSource
	extractor  *fakeExtractor
	summarizer *fakeSummarizer
	generator  *Generator
}

func newFixture() *fixture {
	f := &fixture{
		store:      storage.NewMemory(),
		source:     &fakeSource{articles: map[string][]models.CandidateArticle{}},
		extractor:  &fakeExtractor{},
		summarizer: &fakeSummarizer{},
	}
	pipeline := NewPipeline(f.source, f.extractor, f.summarizer, 5)
	f.generator = NewGenerator(f.store, f.store, pipeline)
	return f
}

func TestGeneratePersists(t *testing.T) {
	f := newFixture()
	f.store.SetPreference("alice", models.Preference{Topic: "Space", Tone: "Calm", Format: "Bullets"})
	f.source.articles["Space"] = articles(4)

	res, err := f.generator.Generate(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Count)
	assert.NotEmpty(t, res.DigestID)

	latest, err := f.store.LatestDigest(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, res.DigestID, latest.ID)
	assert.Equal(t, "Space", latest.Topic)
	assert.False(t, latest.CreatedAt.IsZero())
}

func TestGenerateMissingPreferenceUsesDefaults(t *testing.T) {
	f := newFixture()
	f.source.articles[models.DefaultTopic] = articles(1)

	res, err := f.generator.Generate(context.Background(), "newcomer")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []string{models.DefaultTopic}, f.source.topics)
	assert.Equal(t, models.DefaultTopic, res.Digest.Topic)
}

func TestGeneratePreferenceError(t *testing.T) {
	f := newFixture()
	g := NewGenerator(failingPrefs{}, f.store, NewPipeline(f.source, f.extractor, f.summarizer, 1))

	_, err := g.Generate(context.Background(), "alice")
	require.Error(t, err)
	assert.Zero(t, f.store.Count("alice"))
}

func TestGenerateNothingPersistedOnFailure(t *testing.T) {
	f := newFixture()
	f.store.SetPreference("alice", models.Preference{Topic: "Tech"})

	_, err := f.generator.Generate(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNoArticles)

	f.source.articles["Tech"] = articles(2)
	f.summarizer.fail = map[string]bool{}
	for _, a := range f.source.articles["Tech"] {
		f.summarizer.fail[a.URL] = true
	}
	_, err = f.generator.Generate(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrAllArticlesFailed)

	assert.Zero(t, f.store.Count("alice"))
}

func TestGenerateDeadlineDiscardsRun(t *testing.T) {
	f := newFixture()
	f.store.SetPreference("alice", models.Preference{Topic: "Tech"})
	candidates := articles(3)
	f.source.articles["Tech"] = candidates
	// One article finishes quickly, the others outlive the deadline.
	f.extractor.delay = map[string]time.Duration{
		candidates[1].URL: time.Second,
		candidates[2].URL: time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.generator.Generate(ctx, "alice")
	assert.ErrorIs(t, err, ErrDeadlineExceeded)
	assert.Zero(t, f.store.Count("alice"))
}

func TestGenerateArchives(t *testing.T) {
	f := newFixture()
	f.source.articles[models.DefaultTopic] = articles(1)
	archiver := &fakeArchiver{err: errors.New("bucket missing")}
	f.generator.WithArchiver(archiver)

	res, err := f.generator.Generate(context.Background(), "alice")
	require.NoError(t, err, "archive failures are not fatal")
	assert.Equal(t, []string{res.DigestID}, archiver.archived)
}
