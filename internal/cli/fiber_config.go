package cli

import (
	"time"

	"github.com/gofiber/fiber/v3"
)

// createFiberConfig returns Fiber configuration. Questionnaire machines live in
// process memory, so the server always runs as a single process.
func createFiberConfig(appName string, views fiber.Views) fiber.Config {
	return fiber.Config{
		AppName: appName,
		Views:   views,
		// Use X-Forwarded-For to get real client IP behind reverse proxy
		ProxyHeader:  fiber.HeaderXForwardedFor,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
