package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bilgisen/newsdigest/internal/digest"
	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/bilgisen/newsdigest/internal/middleware"
	"github.com/bilgisen/newsdigest/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Version is reported by the health endpoint.
var Version = "dev"

// DigestService is the subscriber-facing digest API.
type DigestService interface {
	GenerateOnDemand(ctx context.Context, subscriberID string) (*digest.OnDemandResult, error)
	History(ctx context.Context, subscriberID string, days int) ([]*models.Digest, error)
	Latest(ctx context.Context, subscriberID string) (*models.Digest, error)
}

// BatchControl starts and inspects the scheduled batch.
type BatchControl interface {
	Trigger() bool
	Running() bool
	LastReport() *digest.BatchReport
	Next() time.Time
}

type Handlers struct {
	digests DigestService
	batch   BatchControl
	log     zerolog.Logger
}

func NewHandlers(digests DigestService, batch BatchControl) *Handlers {
	return &Handlers{
		digests: digests,
		batch:   batch,
		log:     logger.Component("api"),
	}
}

// HistoryQuery holds the GET /digests query parameters.
type HistoryQuery struct {
	Days int `query:"days" validate:"min=1,max=30"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":  "ok",
		"version": Version,
		"time":    time.Now().Format(time.RFC3339),
	}
	if h.batch != nil {
		if next := h.batch.Next(); !next.IsZero() {
			resp["next_batch"] = next.Format(time.RFC3339)
		}
	}
	return c.JSON(resp)
}

// GenerateDigest handles POST /api/v1/digests/generate
func (h *Handlers) GenerateDigest(c *fiber.Ctx) error {
	subscriberID := middleware.SubscriberID(c)

	res, err := h.digests.GenerateOnDemand(c.UserContext(), subscriberID)
	if err != nil {
		return h.digestError(c, subscriberID, err)
	}
	return c.JSON(res)
}

// ListDigests handles GET /api/v1/digests
func (h *Handlers) ListDigests(c *fiber.Ctx) error {
	subscriberID := middleware.SubscriberID(c)
	q := middleware.Query[HistoryQuery](c)

	digests, err := h.digests.History(c.UserContext(), subscriberID, q.Days)
	if err != nil {
		return h.digestError(c, subscriberID, err)
	}
	if digests == nil {
		digests = []*models.Digest{}
	}

	return c.JSON(fiber.Map{
		"days":    q.Days,
		"total":   len(digests),
		"digests": digests,
	})
}

// LatestDigest handles GET /api/v1/digests/latest
func (h *Handlers) LatestDigest(c *fiber.Ctx) error {
	subscriberID := middleware.SubscriberID(c)

	d, err := h.digests.Latest(c.UserContext(), subscriberID)
	if err != nil {
		return h.digestError(c, subscriberID, err)
	}
	if d == nil {
		return middleware.Error(c, fiber.StatusNotFound, middleware.CodeNotFound, "No digest yet")
	}
	return c.JSON(d)
}

// TriggerBatch handles POST /api/v1/admin/batch
func (h *Handlers) TriggerBatch(c *fiber.Ctx) error {
	if !h.batch.Trigger() {
		return middleware.Error(c, fiber.StatusConflict, middleware.CodeAlreadyExists, "Batch already running")
	}

	h.log.Info().Str("ip", c.IP()).Msg("Batch triggered by admin")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "started",
		"message": "Digest batch started in the background",
	})
}

// BatchStatus handles GET /api/v1/admin/batch
func (h *Handlers) BatchStatus(c *fiber.Ctx) error {
	resp := fiber.Map{
		"running":     h.batch.Running(),
		"last_report": h.batch.LastReport(),
	}
	if next := h.batch.Next(); !next.IsZero() {
		resp["next_run"] = next.Format(time.RFC3339)
	}
	return c.JSON(resp)
}

func (h *Handlers) digestError(c *fiber.Ctx, subscriberID string, err error) error {
	var cooldown *digest.CooldownError
	switch {
	case errors.Is(err, digest.ErrUnauthenticated):
		return middleware.Error(c, fiber.StatusUnauthorized, middleware.CodeUnauthenticated, "User must be authenticated")
	case errors.As(err, &cooldown):
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(cooldown.RetryAfterMinutes*60))
		return middleware.Error(c, fiber.StatusTooManyRequests, middleware.CodeResourceExhausted, cooldown.Message())
	case errors.Is(err, digest.ErrDeadlineExceeded):
		return middleware.Error(c, fiber.StatusGatewayTimeout, middleware.CodeDeadlineExceeded, "Digest generation timed out, please try again")
	}

	h.log.Error().Err(err).Str("subscriber_id", subscriberID).Msg("Digest request failed")
	return middleware.Error(c, fiber.StatusInternalServerError, middleware.CodeInternal, "Failed to generate digest")
}
