package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seuros/studybuddy/internal/analytics"
	"github.com/seuros/studybuddy/internal/metrics"
	"github.com/seuros/studybuddy/internal/waitlist"
)

func TestHandleHealthPayload(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.session(t).do(http.MethodGet, "/health", nil)

	payload := decode[map[string]any](t, body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", payload["status"])
	assert.Equal(t, "studybuddy", payload["service"])
}

func TestHandleUp(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.session(t).do(http.MethodGet, "/up", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "no database configured")

	env.api.Ping = func() error { return nil }
	resp, _ = env.session(t).do(http.MethodGet, "/up", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env.api.Ping = func() error { return errors.New("boom") }
	resp, _ = env.session(t).do(http.MethodGet, "/up", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleVersionReturnsCurrentVersion(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.session(t).do(http.MethodGet, "/api/version", nil)
	assert.Equal(t, "1.2.3", decode[map[string]string](t, body)["version"])
}

func TestPagesRenderAndRecordPageViews(t *testing.T) {
	env := newTestEnv(t)
	s := env.session(t)

	for _, path := range []string{"/?utm_source=vk&utm_campaign=spring", "/quiz", "/waitlist", "/thanks"} {
		resp, body := s.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, string(body), "<!DOCTYPE html>")
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	}

	stats := env.api.Analytics.GetStats(context.Background())
	assert.Equal(t, 4, stats.TotalVisits)
	assert.Equal(t, 1, stats.UniqueVisitors)

	utm := env.api.Analytics.GetUTMStats(context.Background())
	require.Len(t, utm, 1)
	assert.Equal(t, "vk", utm[0].Source)
	assert.Equal(t, "spring", utm[0].Campaign)
	assert.Equal(t, 4, utm[0].Clicks, "attribution follows the visitor across pages")
}

func TestAdminPageIsNotTracked(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.session(t).do(http.MethodGet, "/admin", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/api/admin/login")
	assert.Zero(t, env.api.Analytics.GetStats(context.Background()).TotalVisits)
}

func TestHandleTrack(t *testing.T) {
	env := newTestEnv(t)
	s := env.session(t)

	resp, _ := s.do(http.MethodPost, "/api/track", TrackRequest{Event: analytics.EventCTAClick, Route: "/"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, "/api/track", TrackRequest{
		Event: analytics.EventShareSuccess,
		Route: "/thanks",
		Data:  map[string]any{"method": "clipboard"},
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	stats := env.api.Analytics.GetStats(context.Background())
	assert.Equal(t, 1, stats.CTAClicks)
}

func TestHandleTrackRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)
	s := env.session(t)

	resp, _ := s.do(http.MethodPost, "/api/track", TrackRequest{Event: "made_up"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body := s.do(http.MethodPost, "/api/track", TrackRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), `"field":"Event"`)

	resp, _ = s.do(http.MethodPost, "/api/track", "not an object")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleTrackRefusesServerOnlyEvents(t *testing.T) {
	env := newTestEnv(t)
	s := env.session(t)

	for _, event := range []string{analytics.EventFormStart, analytics.EventFormStepComplete, analytics.EventFormSubmit} {
		resp, _ := s.do(http.MethodPost, "/api/track", TrackRequest{
			Event: event,
			Route: "/",
			Data:  map[string]any{"step": "forged"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, event)
	}

	stats := env.api.Analytics.GetStats(context.Background())
	assert.Zero(t, stats.FormStarts)
	assert.Zero(t, stats.FilledForms)
}

func TestHandleQueue(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.session(t).do(http.MethodGet, "/api/waitlist/queue", nil)
	assert.Equal(t, int64(waitlist.DefaultStart), decode[QueueResponse](t, body).Position)

	env.api.Waitlist = waitlist.NewCounter(500, waitlist.DefaultInterval)
	_, body = env.session(t).do(http.MethodGet, "/api/waitlist/queue", nil)
	assert.Equal(t, int64(500), decode[QueueResponse](t, body).Position)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	recorder := metrics.New()
	env.api.Analytics.AddListener(recorder)
	env.api.Metrics = recorder.Handler()
	env.app = newAppFor(env.api)

	s := env.session(t)
	s.do(http.MethodGet, "/", nil)

	resp, body := s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `studybuddy_events_total{type="page_view"} 1`)
}
