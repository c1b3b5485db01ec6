package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/seuros/studybuddy/internal/waitlist"
)

func (a *API) handleQueue(c fiber.Ctx) error {
	position := int64(waitlist.DefaultStart)
	if a.Waitlist != nil {
		position = a.Waitlist.Value()
	}
	c.Set("Cache-Control", "no-store")
	return c.JSON(QueueResponse{Position: position})
}
