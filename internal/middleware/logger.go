package middleware

import (
	"slices"
	"time"

	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

// LoggerConfig defines the config for the request logger
type LoggerConfig struct {
	// Logger receives one event per request.
	// Optional. Default: the "http" component logger
	Logger *zerolog.Logger

	// SkipPaths are logged at debug level only, e.g. health probes.
	SkipPaths []string
}

// NewLogger logs every request with its status, latency and subscriber.
// 5xx responses log at error level and 4xx at warn.
func NewLogger(config ...LoggerConfig) fiber.Handler {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Logger == nil {
		log := logger.Component("http")
		cfg.Logger = &log
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := responseStatus(c, err)
		event := levelFor(cfg.Logger, status)
		if slices.Contains(cfg.SkipPaths, c.Path()) && status < fiber.StatusBadRequest {
			event = cfg.Logger.Debug()
		}

		event = event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Str("ip", c.IP()).
			Dur("latency", time.Since(start))

		if rid, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok && rid != "" {
			event = event.Str("request_id", rid)
		}
		if id := SubscriberID(c); id != "" {
			event = event.Str("subscriber_id", id)
		}
		if err != nil {
			event = event.Err(err)
		}

		event.Msg("request")
		return err
	}
}

// RequestLogger logs requests, keeping health checks out of the info stream.
// Mount requestid before it to get request IDs in the log.
func RequestLogger() fiber.Handler {
	return NewLogger(LoggerConfig{SkipPaths: []string{"/health", "/api/v1/health"}})
}

// responseStatus is the status the client will see. An error returned down
// the chain has not reached the app error handler yet.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	if fe, ok := err.(*fiber.Error); ok {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func levelFor(l *zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= fiber.StatusInternalServerError:
		return l.Error()
	case status >= fiber.StatusBadRequest:
		return l.Warn()
	default:
		return l.Info()
	}
}
