// Package storage persists digests and reads subscriber preferences. Digests
// are append-only: stores assign the ID and the creation time at write and
// expose no update or delete.
package storage

import (
	"errors"
	"time"

	"github.com/bilgisen/newsdigest/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a subscriber has no preference record.
var ErrNotFound = errors.New("not found")

// stamp assigns identity and creation time to a digest about to be written.
func stamp(d *models.Digest, now time.Time) {
	d.ID = uuid.NewString()
	d.CreatedAt = now.UTC()
}

func cloneDigest(d *models.Digest) *models.Digest {
	out := *d
	out.OverallKeyTakeaways = append([]string(nil), d.OverallKeyTakeaways...)
	out.ArticleSections = append([]models.ArticleCapsule(nil), d.ArticleSections...)
	return &out
}
