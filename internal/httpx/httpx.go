// Package httpx holds the JSON envelope and request helpers shared by handlers.
package httpx

import (
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Error writes the standard {"error": message} envelope.
func Error(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// FieldError is one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// BindJSON decodes the body into dst and validates its struct tags. On failure it
// writes the response itself and returns handled=true.
func BindJSON(c fiber.Ctx, dst any) (handled bool, err error) {
	if err := c.Bind().JSON(dst); err != nil {
		return true, Error(c, fiber.StatusBadRequest, "Invalid JSON body")
	}
	if err := Validator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return true, Error(c, fiber.StatusBadRequest, "Invalid request")
		}
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		return true, c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": fields,
		})
	}
	return false, nil
}

// ClientIP attempts to determine the real client IP respecting proxy headers.
func ClientIP(c fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(c.IP()); err == nil {
		return host
	}
	return c.IP()
}
