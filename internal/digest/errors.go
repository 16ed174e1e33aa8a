package digest

import (
	"errors"
	"fmt"
)

var (
	// ErrNoArticles is the soft failure of a topic with no recent articles.
	ErrNoArticles = errors.New("no articles found")
	// ErrAllArticlesFailed means candidates existed but none produced a capsule.
	ErrAllArticlesFailed = errors.New("all articles failed to process")
	// ErrCooldownActive matches every *CooldownError.
	ErrCooldownActive = errors.New("cooldown active")
	// ErrUnauthenticated is returned when no subscriber identity is present.
	ErrUnauthenticated = errors.New("subscriber must be authenticated")
	// ErrDeadlineExceeded means the run did not settle in time. Nothing was
	// persisted and the caller may retry.
	ErrDeadlineExceeded = errors.New("digest generation timed out")
	// ErrInvalidDigest means an assembled digest failed validation before storage.
	ErrInvalidDigest = errors.New("invalid digest")
)

// CooldownError reports how long a subscriber must wait before requesting
// another digest.
type CooldownError struct {
	RetryAfterMinutes int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active: retry in %d minutes", e.RetryAfterMinutes)
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// Message is the user-facing wait notice.
func (e *CooldownError) Message() string {
	return fmt.Sprintf("Please wait %d minutes before refreshing.", e.RetryAfterMinutes)
}
