package handlers

import (
	"context"
	"slices"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/seuros/studybuddy/internal/analytics"
	"github.com/seuros/studybuddy/internal/httpx"
)

// MaxRouteSize caps the route recorded with a client event.
const MaxRouteSize = 2000

func (a *API) handleTrack(c fiber.Ctx) error {
	var req TrackRequest
	if handled, err := httpx.BindJSON(c, &req); handled {
		return err
	}
	if !slices.Contains(analytics.ClientEvents, req.Event) {
		return httpx.Error(c, fiber.StatusUnprocessableEntity, "Unknown event type")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.tracker(c, req.Route).Track(ctx, req.Event, req.Data)

	return c.SendStatus(fiber.StatusNoContent)
}
