// Package middleware holds the fiber middleware of the funnel site.
package middleware

import (
	"encoding/base64"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/seuros/studybuddy/internal/analytics"
	"github.com/seuros/studybuddy/internal/utm"
)

// Cookie names.
const (
	SessionCookie = "sb_sid"
	UTMCookie     = "sb_utm"
)

const sessionCookieTTL = 30 * 24 * time.Hour

// Visitor is the anonymous visitor behind a request.
type Visitor struct {
	SessionID string
	UTM       utm.Attribution
	// New is set on the request that created the session.
	New bool
}

// VisitorConfig controls the visitor cookies.
type VisitorConfig struct {
	Secure bool
	Now    func() time.Time
}

// Visitors issues the session cookie and caches the entry URL's UTM attribution
// for the rest of the session.
func Visitors(cfg VisitorConfig) fiber.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return func(c fiber.Ctx) error {
		v := &Visitor{SessionID: c.Cookies(SessionCookie)}
		if v.SessionID == "" {
			v.SessionID = analytics.NewSessionID(cfg.Now())
			v.New = true
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    v.SessionID,
				Path:     "/",
				Expires:  cfg.Now().Add(sessionCookieTTL),
				HTTPOnly: true,
				Secure:   cfg.Secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		if raw := c.Cookies(UTMCookie); raw != "" {
			v.UTM = decodeUTMCookie(raw)
		} else if attr := utm.FromValues(queryValues(c)); !attr.Empty() {
			v.UTM = attr
			c.Cookie(&fiber.Cookie{
				Name:     UTMCookie,
				Value:    base64.RawURLEncoding.EncodeToString([]byte(attr.Encode())),
				Path:     "/",
				HTTPOnly: true,
				Secure:   cfg.Secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		c.Locals("visitor", v)
		return c.Next()
	}
}

func queryValues(c fiber.Ctx) url.Values {
	q, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return url.Values{}
	}
	return q
}

func decodeUTMCookie(raw string) utm.Attribution {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return utm.Attribution{}
	}
	return utm.Decode(string(data))
}

// GetVisitor returns the visitor stored by Visitors, or nil.
func GetVisitor(c fiber.Ctx) *Visitor {
	if v, ok := c.Locals("visitor").(*Visitor); ok {
		return v
	}
	return nil
}
