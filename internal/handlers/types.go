package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/seuros/studybuddy/internal/analytics"
)

// TrackRequest is a client-side funnel event.
type TrackRequest struct {
	Event string         `json:"event" validate:"required,max=64"`
	Route string         `json:"route" validate:"omitempty,max=2000"`
	Data  map[string]any `json:"data"`
}

// AnswerRequest changes one questionnaire field. Value is a string or a number.
type AnswerRequest struct {
	Field string `json:"field" validate:"required,max=32"`
	Value any    `json:"value"`
}

// KeyRequest is a keyboard shortcut pressed on the questionnaire.
type KeyRequest struct {
	Key string `json:"key" validate:"required,max=32"`
}

// LoginRequest carries the admin password.
type LoginRequest struct {
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse confirms an admin session.
type LoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// QueueResponse is the waitlist position shown on the fake door page.
type QueueResponse struct {
	Position int64 `json:"position"`
}

// TimeSeriesResponse is the daily count of one event type.
type TimeSeriesResponse struct {
	EventType string                `json:"event_type"`
	Days      int                   `json:"days"`
	Points    []analytics.TimePoint `json:"points"`
}

// stringValue flattens a JSON scalar into the text form the wizard accepts.
func stringValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
