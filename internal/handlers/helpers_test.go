package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/seuros/studybuddy/internal/analytics"
	"github.com/seuros/studybuddy/internal/middleware"
	"github.com/seuros/studybuddy/internal/progress"
	"github.com/seuros/studybuddy/internal/wizard"
)

const testPassword = "correct horse"

var testSecret = []byte("handlers-test-secret")

type testEnv struct {
	app      *fiber.App
	api      *API
	store    *analytics.LocalStore
	progress *progress.FileBackend
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := analytics.NewLocalStore("")
	svc := analytics.NewService(store, analytics.Options{})
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(func() { _ = svc.Dispose() })

	backend, err := progress.NewFileBackend(t.TempDir())
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	registry := wizard.NewRegistry(nil)
	t.Cleanup(registry.Close)

	api := &API{
		Analytics:    svc,
		Wizards:      registry,
		Progress:     backend,
		WizardConfig: wizard.Config{GoalsMode: wizard.GoalsMultiple, LevelMode: wizard.LevelByGoal},
		Admin:        AdminConfig{PasswordHash: string(hash), JWTSecret: testSecret},
		Version:      "1.2.3",
	}
	return &testEnv{app: newAppFor(api), api: api, store: store, progress: backend}
}

func newAppFor(api *API) *fiber.App {
	app := fiber.New(fiber.Config{Views: NewViews()})
	api.Register(app)
	return app
}

// session performs requests carrying the cookies earlier responses set.
type session struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (e *testEnv) session(t *testing.T) *session {
	return &session{t: t, env: e, cookies: map[string]*http.Cookie{}}
}

func (s *session) do(method, path string, body any) (*http.Response, []byte) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}

	resp, err := s.env.app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(s.t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)

	for _, c := range resp.Cookies() {
		if c.Value == "" {
			delete(s.cookies, c.Name)
			continue
		}
		s.cookies[c.Name] = c
	}
	return resp, data
}

func (s *session) sessionID() string {
	if c, ok := s.cookies[middleware.SessionCookie]; ok {
		return c.Value
	}
	return ""
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}
