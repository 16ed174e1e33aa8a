package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bilgisen/newsdigest/internal/models"
)

type fakeSource struct {
	articles map[string][]models.CandidateArticle
	err      error
	topics   []string
	mu       sync.Mutex
}

func (f *fakeSource) FetchCandidates(ctx context.Context, topic string) ([]models.CandidateArticle, error) {
	f.mu.Lock()
	f.topics = append(f.topics, topic)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.articles[topic], nil
}

// fakeExtractor returns "text of <url>" unless a hook intervenes.
type fakeExtractor struct {
	fail   map[string]error
	panics map[string]bool
	delay  map[string]time.Duration
	block  bool

	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if d, ok := f.delay[url]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.panics[url] {
		panic("extractor exploded")
	}
	if err, ok := f.fail[url]; ok {
		return "", err
	}
	return "text of " + url, nil
}

type fakeSummarizer struct {
	fail  map[string]bool
	calls atomic.Int32
	tones sync.Map
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text, tone, format string) (*models.ArticleCapsule, error) {
	f.calls.Add(1)
	f.tones.Store(tone+"|"+format, true)
	url := strings.TrimPrefix(text, "text of ")
	if f.fail[url] {
		return nil, errors.New("model refused")
	}
	return &models.ArticleCapsule{
		Headline:    "Headline " + url,
		KeyTakeaway: "Takeaway " + url,
		Synopsis:    "Synopsis " + url,
		Sentiment:   models.SentimentNeutral,
	}, nil
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived []string
	err      error
}

func (f *fakeArchiver) Archive(ctx context.Context, d *models.Digest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, d.ID)
	return f.err
}

type failingPrefs struct{}

func (failingPrefs) GetPreference(ctx context.Context, subscriberID string) (*models.Preference, error) {
	return nil, errors.New("profile store down")
}

func articles(n int) []models.CandidateArticle {
	out := make([]models.CandidateArticle, n)
	for i := range out {
		out[i] = models.CandidateArticle{
			URL:   fmt.Sprintf("https://news.example.com/%d", i+1),
			Title: fmt.Sprintf("Story %d", i+1),
		}
	}
	return out
}
