package middleware

import (
	"net/url"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// SameOrigin rejects state-changing requests whose Origin is neither the serving
// host nor one of the trusted domains. Requests without an Origin header pass, as
// browsers always send one on cross-site POSTs.
func SameOrigin(trustedDomains []string) fiber.Handler {
	trusted := make([]string, 0, len(trustedDomains))
	for _, d := range trustedDomains {
		trusted = append(trusted, strings.ToLower(d))
	}
	return func(c fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Invalid origin"})
		}
		host := strings.ToLower(u.Host)
		if host == strings.ToLower(c.Hostname()) || slices.Contains(trusted, host) || slices.Contains(trusted, strings.ToLower(u.Hostname())) {
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Origin not allowed"})
	}
}
