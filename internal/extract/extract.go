// Package extract turns article URLs into plain text or markdown suitable for
// summarization.
package extract

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoContent means the page was reachable but yielded nothing usable
	// (paywall, empty body, script-only page).
	ErrNoContent = errors.New("no extractable content")
	// ErrUpstream covers transport failures and non-success responses.
	ErrUpstream = errors.New("extraction service unavailable")
)

// Extractor fetches the readable text of a single article.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Chain tries each extractor in order and returns the first non-empty text.
type Chain []Extractor

func (c Chain) Extract(ctx context.Context, url string) (string, error) {
	err := fmt.Errorf("%w: no extractors configured", ErrNoContent)
	for _, e := range c {
		text, extractErr := e.Extract(ctx, url)
		if extractErr == nil && text != "" {
			return text, nil
		}
		if extractErr == nil {
			extractErr = ErrNoContent
		}
		err = extractErr
		if ctx.Err() != nil {
			break
		}
	}
	return "", err
}
