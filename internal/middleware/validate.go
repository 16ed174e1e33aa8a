package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// QueryKey is the fiber local holding validated query parameters.
const QueryKey = "queryParams"

// Validator is a struct that holds the validator instance
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate validates s against its validate tags
func (v *Validator) Validate(s any) error {
	return v.validate.Struct(s)
}

// ValidateQuery parses the query string into a fresh T per request, applies
// defaults set by newT, and validates it. The result is stored under QueryKey.
func ValidateQuery[T any](newT func() *T) fiber.Handler {
	v := NewValidator()

	return func(c *fiber.Ctx) error {
		params := newT()
		if err := c.QueryParser(params); err != nil {
			return Error(c, fiber.StatusBadRequest, CodeInvalidArgument, "Invalid query parameters")
		}

		if err := v.Validate(params); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return err
			}
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s:%s", fe.Field(), fe.Tag()))
			}
			return Error(c, fiber.StatusBadRequest, CodeInvalidArgument,
				"Invalid query parameters: "+strings.Join(fields, ", "))
		}

		c.Locals(QueryKey, params)
		return c.Next()
	}
}

// Query returns the parameters stored by ValidateQuery.
func Query[T any](c *fiber.Ctx) *T {
	params, _ := c.Locals(QueryKey).(*T)
	return params
}
