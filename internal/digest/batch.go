package digest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Batch defaults.
const (
	DefaultBatchConcurrency = 3
	DefaultBatchTimeout     = 9 * time.Minute
)

// BatchReport summarizes one batch run.
type BatchReport struct {
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	NoArticles int           `json:"noArticles"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
}

// Batch generates a digest for every subscriber. It bypasses the cooldown.
type Batch struct {
	store       Store
	generator   *Generator
	concurrency int
	timeout     time.Duration
	log         zerolog.Logger
}

func NewBatch(store Store, generator *Generator, concurrency int, timeout time.Duration) *Batch {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultBatchTimeout
	}
	return &Batch{
		store:       store,
		generator:   generator,
		concurrency: concurrency,
		timeout:     timeout,
		log:         logger.Component("batch"),
	}
}

// Run processes subscribers with bounded parallelism. Per-subscriber failures
// are counted and never stop the run. Subscribers not started before the
// batch deadline are counted as skipped; digests already stored stay stored.
func (b *Batch) Run(ctx context.Context) (*BatchReport, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	ids, err := b.store.ListSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	var (
		mu     sync.Mutex
		report = &BatchReport{Total: len(ids)}
	)
	tally := func(fn func(r *BatchReport)) {
		mu.Lock()
		fn(report)
		mu.Unlock()
	}

	b.log.Info().Int("subscribers", len(ids)).Msg("Starting digest batch")

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)

	for i, id := range ids {
		if ctx.Err() != nil {
			remaining := len(ids) - i
			tally(func(r *BatchReport) { r.Skipped += remaining })
			break
		}

		g.Go(func() error {
			// Waiting for a slot may outlast the deadline.
			if ctx.Err() != nil {
				tally(func(r *BatchReport) { r.Skipped++ })
				return nil
			}

			err := b.runOne(ctx, id)
			tally(func(r *BatchReport) {
				switch {
				case err == nil:
					r.Succeeded++
				case errors.Is(err, ErrNoArticles):
					r.NoArticles++
				default:
					r.Failed++
				}
			})
			return nil
		})
	}

	_ = g.Wait()

	mu.Lock()
	defer mu.Unlock()
	report.Duration = time.Since(start)

	b.log.Info().
		Int("total", report.Total).
		Int("succeeded", report.Succeeded).
		Int("no_articles", report.NoArticles).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Dur("duration", report.Duration).
		Msg("Digest batch finished")

	out := *report
	return &out, nil
}

func (b *Batch) runOne(ctx context.Context, subscriberID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("subscriber_id", subscriberID).
				Bytes("stack", debug.Stack()).
				Msgf("Recovered from panic: %v", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	res, err := b.generator.Generate(ctx, subscriberID)
	switch {
	case errors.Is(err, ErrNoArticles):
		b.log.Info().Str("subscriber_id", subscriberID).Msg("No articles for subscriber topic")
		return err
	case err != nil:
		b.log.Error().Err(err).Str("subscriber_id", subscriberID).Msg("Failed to generate digest")
		return err
	}

	b.log.Debug().
		Str("subscriber_id", subscriberID).
		Str("digest_id", res.DigestID).
		Int("count", res.Count).
		Msg("Digest generated")
	return nil
}
