// Package handlers serves the funnel pages and their JSON API.
package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"go.uber.org/zap"

	"github.com/seuros/studybuddy/internal/analytics"
	"github.com/seuros/studybuddy/internal/middleware"
	"github.com/seuros/studybuddy/internal/progress"
	"github.com/seuros/studybuddy/internal/realtime"
	"github.com/seuros/studybuddy/internal/waitlist"
	"github.com/seuros/studybuddy/internal/wizard"
)

// LoginAttemptsPerMinute limits password guesses per client.
const LoginAttemptsPerMinute = 10

// AdminConfig gates the dashboard.
type AdminConfig struct {
	// PasswordHash is a bcrypt hash. Empty disables login.
	PasswordHash string
	JWTSecret    []byte
}

// API carries the collaborators of every handler. Nil optional members turn the
// matching routes off.
type API struct {
	Analytics    *analytics.Service
	Wizards      *wizard.Registry
	Progress     progress.Backend
	WizardConfig wizard.Config
	Waitlist     *waitlist.Counter
	Hub          *realtime.Hub
	Metrics      http.Handler
	Admin        AdminConfig

	SecureCookies  bool
	TrustedOrigins []string

	Version string
	// Ping checks the database for /up; nil when no store needs one.
	Ping   func() error
	Logger *zap.Logger
	Now    func() time.Time
}

func (a *API) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *API) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// Register mounts every route on app.
func (a *API) Register(app *fiber.App) {
	visitor := middleware.Visitors(middleware.VisitorConfig{Secure: a.SecureCookies, Now: a.Now})
	sameOrigin := middleware.SameOrigin(a.TrustedOrigins)
	admin := middleware.AdminAuth(a.Admin.JWTSecret)

	app.Get("/health", a.handleHealth)
	app.Get("/up", a.handleUp)
	app.Get("/api/version", a.handleVersion)
	if a.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(a.Metrics))
	}

	app.Get("/", visitor, a.page("landing", "/"))
	app.Get("/quiz", visitor, a.page("quiz", "/quiz"))
	app.Get("/waitlist", visitor, a.page("waitlist", "/waitlist"))
	app.Get("/thanks", visitor, a.page("thanks", "/thanks"))
	app.Get("/admin", a.handleAdminPage)

	app.Post("/api/track", sameOrigin, visitor, a.handleTrack)

	app.Get("/api/wizard", visitor, a.handleWizardView)
	app.Post("/api/wizard/answers", sameOrigin, visitor, a.handleWizardAnswer)
	app.Post("/api/wizard/next", sameOrigin, visitor, a.handleWizardNext)
	app.Post("/api/wizard/back", sameOrigin, visitor, a.handleWizardBack)
	app.Post("/api/wizard/key", sameOrigin, visitor, a.handleWizardKey)

	app.Get("/api/waitlist/queue", a.handleQueue)

	loginLimiter := limiter.New(limiter.Config{
		Max:        LoginAttemptsPerMinute,
		Expiration: time.Minute,
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many login attempts"})
		},
	})
	app.Post("/api/admin/login", sameOrigin, loginLimiter, a.handleLogin)
	app.Post("/api/admin/logout", sameOrigin, a.handleLogout)
	app.Get("/api/admin/stats", admin, a.handleStats)
	app.Get("/api/admin/funnel", admin, a.handleFunnel)
	app.Get("/api/admin/utm", admin, a.handleUTM)
	app.Get("/api/admin/applications", admin, a.handleApplications)
	app.Get("/api/admin/timeseries", admin, a.handleTimeSeries)
	if a.Hub != nil {
		app.Get("/api/admin/live", admin, a.Hub.Handler())
	}
}

func (a *API) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "studybuddy",
	})
}

func (a *API) handleUp(c fiber.Ctx) error {
	if a.Ping != nil {
		if err := a.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("database unavailable")
		}
	}
	return c.SendStatus(fiber.StatusOK)
}

func (a *API) handleVersion(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version": a.Version,
	})
}

func (a *API) tracker(c fiber.Ctx, route string) *analytics.Tracker {
	v := middleware.GetVisitor(c)
	visit := analytics.Visit{Route: route}
	if v != nil {
		visit.SessionID = v.SessionID
		visit.UTM = v.UTM
	}
	return a.Analytics.Session(visit)
}
