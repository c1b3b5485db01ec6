package handlers

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/template/html/v2"

	"github.com/seuros/studybuddy/internal/analytics"
)

//go:embed views/*.html
var viewsFS embed.FS

// NewViews returns the template engine for the page shells.
func NewViews() *html.Engine {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}

type pageData struct {
	Title   string
	Page    string
	Version string
}

var pageTitles = map[string]string{
	"landing":  "StudyBuddy: подготовка к экзаменам и олимпиадам",
	"quiz":     "StudyBuddy: подбор программы",
	"waitlist": "StudyBuddy: лист ожидания",
	"thanks":   "StudyBuddy: спасибо!",
	"admin":    "StudyBuddy: аналитика",
}

// page renders a shell and records a page_view for route.
func (a *API) page(name, route string) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.tracker(c, route).Track(ctx, analytics.EventPageView, nil)
		return a.render(c, name)
	}
}

func (a *API) handleAdminPage(c fiber.Ctx) error {
	return a.render(c, "admin")
}

func (a *API) render(c fiber.Ctx, name string) error {
	c.Set("Cache-Control", "no-store")
	return c.Render(name, pageData{
		Title:   pageTitles[name],
		Page:    name,
		Version: a.Version,
	}, "layout")
}
