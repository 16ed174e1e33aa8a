package middleware

import (
	"errors"

	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/gofiber/fiber/v2"
)

// Error codes returned in the response body.
const (
	CodeInvalidArgument   = "invalid-argument"
	CodeUnauthenticated   = "unauthenticated"
	CodePermissionDenied  = "permission-denied"
	CodeNotFound          = "not-found"
	CodeAlreadyExists     = "already-exists"
	CodeResourceExhausted = "resource-exhausted"
	CodeDeadlineExceeded  = "deadline-exceeded"
	CodeInternal          = "internal"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error writes an error response.
func Error(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// ErrorHandler is the fiber app error handler. Internal details are logged,
// never returned.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	logger.Get().Error().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Msg("HTTP error")

	message := "Internal server error"
	if fe != nil {
		message = fe.Message
	}
	return Error(c, status, codeForStatus(status), message)
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return CodeInvalidArgument
	case fiber.StatusUnauthorized:
		return CodeUnauthenticated
	case fiber.StatusForbidden:
		return CodePermissionDenied
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return CodeNotFound
	case fiber.StatusConflict:
		return CodeAlreadyExists
	case fiber.StatusTooManyRequests:
		return CodeResourceExhausted
	case fiber.StatusGatewayTimeout:
		return CodeDeadlineExceeded
	default:
		return CodeInternal
	}
}
