package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
)

// AdminCookie carries the admin session token.
const AdminCookie = "sb_admin"

// AdminTokenTTL is the lifetime of an admin session.
const AdminTokenTTL = 12 * time.Hour

const adminSubject = "admin"

// AdminClaims are the claims of an admin session token.
type AdminClaims struct {
	jwt.RegisteredClaims
}

// IssueAdminToken signs a session token valid for AdminTokenTTL from now.
func IssueAdminToken(secret []byte, now time.Time) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, ErrAdminNotConfigured
	}
	expires := now.Add(AdminTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminSubject,
			Issuer:    "studybuddy",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ErrAdminNotConfigured is returned when no jwt secret is set.
var ErrAdminNotConfigured = errors.New("admin jwt secret not configured")

// ParseAdminToken verifies signature, algorithm and expiry. An empty secret
// verifies nothing.
func ParseAdminToken(secret []byte, raw string) (*AdminClaims, error) {
	if len(secret) == 0 {
		return nil, ErrAdminNotConfigured
	}
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer("studybuddy"), jwt.WithSubject(adminSubject))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// AdminAuth accepts an admin token from the session cookie or a Bearer header.
func AdminAuth(secret []byte) fiber.Handler {
	return func(c fiber.Ctx) error {
		if len(secret) == 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Admin login not configured",
			})
		}
		token := c.Cookies(AdminCookie)
		if token == "" {
			if h := c.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized - no admin session",
			})
		}

		claims, err := ParseAdminToken(secret, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized - invalid or expired admin session",
			})
		}

		c.Locals("admin", claims)
		return c.Next()
	}
}

// GetAdmin returns the verified admin claims, or nil.
func GetAdmin(c fiber.Ctx) *AdminClaims {
	if claims, ok := c.Locals("admin").(*AdminClaims); ok {
		return claims
	}
	return nil
}
