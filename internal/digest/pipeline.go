package digest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/bilgisen/newsdigest/internal/extract"
	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/bilgisen/newsdigest/internal/models"
	"github.com/rs/zerolog"
)

// DefaultArticleConcurrency bounds the per-article fan-out.
const DefaultArticleConcurrency = 5

// SkipReason explains why an article produced no capsule.
type SkipReason string

const (
	ReasonNone                SkipReason = ""
	ReasonExtractionFailed    SkipReason = "extraction_failed"
	ReasonNoContent           SkipReason = "no_content"
	ReasonSummarizationFailed SkipReason = "summarization_failed"
	ReasonPanic               SkipReason = "panic"
	ReasonCancelled           SkipReason = "cancelled"
)

// ArticleOutcome is the settled result of one candidate. Capsule is set if
// and only if Reason is ReasonNone.
type ArticleOutcome struct {
	Article models.CandidateArticle
	Capsule *models.ArticleCapsule
	Reason  SkipReason
	Err     error
}

// Pipeline turns a subscriber preference into an assembled digest.
type Pipeline struct {
	source      Source
	extractor   Extractor
	summarizer  Summarizer
	concurrency int
	log         zerolog.Logger
}

func NewPipeline(source Source, extractor Extractor, summarizer Summarizer, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultArticleConcurrency
	}
	return &Pipeline{
		source:      source,
		extractor:   extractor,
		summarizer:  summarizer,
		concurrency: concurrency,
		log:         logger.Component("pipeline"),
	}
}

// Process fetches candidates for the preferred topic and settles every one of
// them before assembling the digest. It returns ErrNoArticles when the source
// has nothing, and ErrAllArticlesFailed when no candidate yields a capsule.
// Capsules keep the order in which their articles completed.
func (p *Pipeline) Process(ctx context.Context, subscriberID string, pref models.Preference) (*models.Digest, error) {
	pref = pref.WithDefaults()
	start := time.Now()

	candidates, err := p.source.FetchCandidates(ctx, pref.Topic)
	if err != nil {
		p.log.Warn().Err(err).
			Str("subscriber_id", subscriberID).
			Str("topic", pref.Topic).
			Msg("Source unavailable, treating as no articles")
		candidates = nil
	}
	if len(candidates) == 0 {
		p.log.Info().
			Str("subscriber_id", subscriberID).
			Str("topic", pref.Topic).
			Msg("No articles found for topic")
		return nil, ErrNoArticles
	}

	outcomes := p.fanOut(ctx, pref, candidates)

	capsules := make([]models.ArticleCapsule, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Capsule != nil {
			capsules = append(capsules, *o.Capsule)
		}
	}

	p.log.Info().
		Str("subscriber_id", subscriberID).
		Str("topic", pref.Topic).
		Int("candidates", len(candidates)).
		Int("count", len(capsules)).
		Dur("duration", time.Since(start)).
		Msg("Articles processed")

	if len(capsules) == 0 {
		return nil, fmt.Errorf("%w: %d candidates", ErrAllArticlesFailed, len(candidates))
	}
	return models.NewDigest(subscriberID, pref.Topic, capsules), nil
}

// fanOut processes candidates with at most p.concurrency in flight and
// returns one outcome per candidate, in completion order. Candidates not yet
// started when ctx ends are recorded as cancelled.
func (p *Pipeline) fanOut(ctx context.Context, pref models.Preference, candidates []models.CandidateArticle) []ArticleOutcome {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make([]ArticleOutcome, 0, len(candidates))
		sem      = make(chan struct{}, p.concurrency)
	)

	record := func(o ArticleOutcome) {
		if o.Reason != ReasonNone {
			p.log.Warn().Err(o.Err).
				Str("url", o.Article.URL).
				Str("reason", string(o.Reason)).
				Msg("Article skipped")
		}
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	}

	for _, article := range candidates {
		select {
		case <-ctx.Done():
			record(ArticleOutcome{Article: article, Reason: ReasonCancelled, Err: ctx.Err()})
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(a models.CandidateArticle) {
			defer wg.Done()
			defer func() { <-sem }()
			record(p.processArticle(ctx, pref, a))
		}(article)
	}

	wg.Wait()
	return outcomes
}

func (p *Pipeline) processArticle(ctx context.Context, pref models.Preference, a models.CandidateArticle) (out ArticleOutcome) {
	out.Article = a

	defer func() {
		if r := recover(); r != nil {
			p.log.Error().
				Str("url", a.URL).
				Bytes("stack", debug.Stack()).
				Msgf("Recovered from panic: %v", r)
			out = ArticleOutcome{Article: a, Reason: ReasonPanic, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	text, err := p.extractor.Extract(ctx, a.URL)
	if err != nil {
		out.Err = err
		switch {
		case ctx.Err() != nil:
			out.Reason = ReasonCancelled
		case errors.Is(err, extract.ErrNoContent):
			out.Reason = ReasonNoContent
		default:
			out.Reason = ReasonExtractionFailed
		}
		return out
	}
	if strings.TrimSpace(text) == "" {
		out.Reason = ReasonNoContent
		out.Err = extract.ErrNoContent
		return out
	}

	capsule, err := p.summarizer.Summarize(ctx, text, pref.Tone, pref.Format)
	if err == nil && capsule == nil {
		err = errors.New("summarizer returned no capsule")
	}
	if err != nil {
		out.Err = err
		out.Reason = ReasonSummarizationFailed
		if ctx.Err() != nil {
			out.Reason = ReasonCancelled
		}
		return out
	}

	c := *capsule
	c.SourceURL = a.URL
	c.OriginalTitle = a.Title
	out.Capsule = &c
	return out
}
