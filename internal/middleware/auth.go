package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SubscriberKey is the fiber local holding the authenticated subscriber ID.
const SubscriberKey = "subscriberID"

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Skip defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Validator turns a bearer token into a subscriber ID.
	// Required.
	Validator func(token string) (string, error)

	// ErrorHandler defines a function which is executed for an invalid token.
	// Optional. Default: 401 unauthenticated
	ErrorHandler fiber.ErrorHandler

	// ContextKey is the key used to store the subscriber ID in the context.
	// Optional. Default: SubscriberKey
	ContextKey string

	// Header is the header key where to get the token from.
	// Optional. Default: "Authorization"
	Header string
}

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
	Next: nil,
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		logger.Get().Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		return Error(c, fiber.StatusUnauthorized, CodeUnauthenticated, "User must be authenticated")
	},
	ContextKey: SubscriberKey,
	Header:     fiber.HeaderAuthorization,
}

// NewAuth authenticates subscribers from a bearer token.
func NewAuth(config ...AuthConfig) fiber.Handler {
	cfg := ConfigDefault

	if len(config) > 0 {
		cfg = config[0]

		if cfg.ErrorHandler == nil {
			cfg.ErrorHandler = ConfigDefault.ErrorHandler
		}
		if cfg.ContextKey == "" {
			cfg.ContextKey = ConfigDefault.ContextKey
		}
		if cfg.Header == "" {
			cfg.Header = ConfigDefault.Header
		}
	}
	if cfg.Validator == nil {
		panic("middleware: auth validator is required")
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		authHeader := strings.TrimSpace(c.Get(cfg.Header))
		if authHeader == "" {
			return cfg.ErrorHandler(c, errors.New("missing bearer token"))
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		subscriberID, err := cfg.Validator(token)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		if subscriberID == "" {
			return cfg.ErrorHandler(c, errors.New("token has no subject"))
		}

		c.Locals(cfg.ContextKey, subscriberID)
		return c.Next()
	}
}

// JWTValidator verifies HS256 tokens signed with secret and returns their
// subject.
func JWTValidator(secret string) func(token string) (string, error) {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(token string) (string, error) {
		var claims jwt.RegisteredClaims
		if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
			return key, nil
		}); err != nil {
			return "", fmt.Errorf("invalid token: %w", err)
		}
		return claims.Subject, nil
	}
}

// SubscriberID returns the authenticated subscriber, empty if none.
func SubscriberID(c *fiber.Ctx) string {
	id, _ := c.Locals(SubscriberKey).(string)
	return id
}

// AdminOnly is a middleware that checks if the request is from an admin
func AdminOnly(adminKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-API-Key")
		if apiKey == "" || adminKey == "" {
			logger.Get().Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Admin access attempt without API key")

			return Error(c, fiber.StatusUnauthorized, CodeUnauthenticated, "API key is required")
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(adminKey)) != 1 {
			logger.Get().Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Unauthorized admin access attempt")

			return Error(c, fiber.StatusForbidden, CodePermissionDenied, "Admin access required")
		}

		return c.Next()
	}
}
