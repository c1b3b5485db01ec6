package realtime

import (
	"encoding/json"
	"time"

	"github.com/seuros/studybuddy/internal/analytics"
)

// Message kinds.
const (
	KindEvent       = "event"
	KindApplication = "application"
)

// Message is what dashboards receive. Contact details never leave the server.
type Message struct {
	Kind          string    `json:"kind"`
	EventType     string    `json:"event_type,omitempty"`
	SessionID     string    `json:"session_id"`
	Route         string    `json:"route,omitempty"`
	Source        string    `json:"source"`
	ApplicationID string    `json:"application_id,omitempty"`
	Grade         string    `json:"grade,omitempty"`
	Goals         []string  `json:"goals,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// EventMessage describes a recorded event.
func EventMessage(e analytics.Event) Message {
	return Message{
		Kind:      KindEvent,
		EventType: e.Type,
		SessionID: e.SessionID,
		Route:     e.Route,
		Source:    e.UTM.SourceOr(analytics.DirectSource),
		CreatedAt: e.CreatedAt,
	}
}

// ApplicationMessage describes a new application.
func ApplicationMessage(a analytics.Application) Message {
	return Message{
		Kind:          KindApplication,
		SessionID:     a.SessionID,
		Source:        a.UTM.SourceOr(analytics.DirectSource),
		ApplicationID: a.ID,
		Grade:         a.Grade,
		Goals:         a.Goals,
		CreatedAt:     a.SubmittedAt,
	}
}

func (m Message) encode() ([]byte, error) { return json.Marshal(m) }
