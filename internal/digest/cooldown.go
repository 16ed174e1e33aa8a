package digest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bilgisen/newsdigest/internal/models"
)

// DefaultCooldown is the minimum gap between two on-demand digests.
const DefaultCooldown = 15 * time.Minute

type latestReader interface {
	LatestDigest(ctx context.Context, subscriberID string) (*models.Digest, error)
}

// Guard enforces the on-demand cooldown from the latest persisted digest.
// The check is not atomic with the later write: two concurrent requests may
// both pass.
type Guard struct {
	store  latestReader
	window time.Duration
	now    func() time.Time
}

func NewGuard(store latestReader, window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &Guard{store: store, window: window, now: time.Now}
}

// Check returns nil when the subscriber may request a digest, or a
// *CooldownError carrying the whole minutes left, rounded up.
func (g *Guard) Check(ctx context.Context, subscriberID string) error {
	last, err := g.store.LatestDigest(ctx, subscriberID)
	if err != nil {
		return fmt.Errorf("check cooldown: %w", err)
	}
	if last == nil || last.CreatedAt.IsZero() {
		return nil
	}

	// CreatedAt may come from the store's clock, which can run ahead of ours.
	elapsed := max(g.now().Sub(last.CreatedAt).Minutes(), 0)
	window := g.window.Minutes()
	if elapsed < window {
		return &CooldownError{RetryAfterMinutes: int(math.Ceil(window - elapsed))}
	}
	return nil
}
