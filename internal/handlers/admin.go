package handlers

import (
	"context"
	"slices"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/seuros/studybuddy/internal/analytics"
	"github.com/seuros/studybuddy/internal/httpx"
	"github.com/seuros/studybuddy/internal/middleware"
)

// MaxTimeSeriesDays bounds the timeseries window.
const MaxTimeSeriesDays = 365

func (a *API) handleLogin(c fiber.Ctx) error {
	if a.Admin.PasswordHash == "" || len(a.Admin.JWTSecret) == 0 {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "Admin login is disabled")
	}

	var req LoginRequest
	if handled, err := httpx.BindJSON(c, &req); handled {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.Admin.PasswordHash), []byte(req.Password)); err != nil {
		a.logger().Warn("admin login rejected", zap.String("ip", httpx.ClientIP(c)))
		return httpx.Error(c, fiber.StatusUnauthorized, "Invalid password")
	}

	token, expires, err := middleware.IssueAdminToken(a.Admin.JWTSecret, a.now())
	if err != nil {
		a.logger().Error("failed to issue admin token", zap.Error(err))
		return httpx.Error(c, fiber.StatusInternalServerError, "Failed to create session")
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.AdminCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   a.SecureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
	})

	return c.JSON(LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expires,
	})
}

func (a *API) handleLogout(c fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AdminCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   a.SecureCookies,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(fiber.Map{"success": true})
}

func (a *API) handleStats(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.JSON(a.Analytics.GetStats(ctx))
}

func (a *API) handleFunnel(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.JSON(a.Analytics.GetFunnelData(ctx))
}

func (a *API) handleUTM(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.JSON(a.Analytics.GetUTMStats(ctx))
}

// handleApplications pages through the newest applications. The total is the
// filled-forms figure from the headline stats.
func (a *API) handleApplications(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	params := ParsePaginationParams(c)
	rows := a.Analytics.GetRecentApplications(ctx, params.Offset+params.Per)
	total := int64(a.Analytics.GetStats(ctx).FilledForms)

	return c.JSON(NewPaginatedResponse(pageOf(rows, params), params, total))
}

func (a *API) handleTimeSeries(c fiber.Ctx) error {
	eventType := c.Query("event", analytics.EventPageView)
	if !slices.Contains(analytics.KnownEvents, eventType) {
		return httpx.Error(c, fiber.StatusBadRequest, "Unknown event type")
	}
	days := min(max(fiber.Query(c, "days", 30), 1), MaxTimeSeriesDays)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return c.JSON(TimeSeriesResponse{
		EventType: eventType,
		Days:      days,
		Points:    a.Analytics.GetTimeSeries(ctx, eventType, days),
	})
}
