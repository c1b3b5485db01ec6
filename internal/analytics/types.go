// Package analytics records funnel events and applications and derives the admin
// dashboard figures from them.
package analytics

import (
	"context"
	"time"

	"github.com/seuros/studybuddy/internal/utm"
)

// Event types emitted by the site.
const (
	EventPageView         = "page_view"
	EventCTAClick         = "cta_click"
	EventFormStart        = "form_start"
	EventFormStepComplete = "form_step_complete"
	EventFormSubmit       = "form_submit"
	EventFakeDoorView     = "fake_door_view"
	EventThanksPageView   = "thanks_page_view"
	EventShareSuccess     = "share_success"
)

// KnownEvents lists every event type the store records.
var KnownEvents = []string{
	EventPageView,
	EventCTAClick,
	EventFormStart,
	EventFormStepComplete,
	EventFormSubmit,
	EventFakeDoorView,
	EventThanksPageView,
	EventShareSuccess,
}

// ClientEvents are the types browsers may report directly. Questionnaire
// progress and submissions are only recorded by the server.
var ClientEvents = []string{
	EventPageView,
	EventCTAClick,
	EventFakeDoorView,
	EventThanksPageView,
	EventShareSuccess,
}

// Event is one append-only tracking record.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"eventType"`
	SessionID string          `json:"sessionId"`
	Route     string          `json:"route,omitempty"`
	Data      map[string]any  `json:"data,omitempty"`
	UTM       utm.Attribution `json:"utm"`
	CreatedAt time.Time       `json:"timestamp"`
}

// ApplicationData is a finished, sanitized questionnaire.
type ApplicationData struct {
	Grade          string   `json:"grade"`
	Goals          []string `json:"goals"`
	Subjects       []string `json:"subjects"`
	Level          string   `json:"level,omitempty"`
	ExamScore      string   `json:"examScore,omitempty"`
	SelfAssessment int      `json:"selfAssessment,omitempty"`
	Email          string   `json:"email"`
	Telegram       string   `json:"telegram"`
}

// Application is an immutable submission record.
type Application struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	ApplicationData
	UTM         utm.Attribution `json:"utm"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

// Stats are the dashboard headline figures.
type Stats struct {
	TotalVisits    int     `json:"totalVisits" yaml:"total_visits"`
	UniqueVisitors int     `json:"uniqueVisitors" yaml:"unique_visitors"`
	CTAClicks      int     `json:"ctaClicks" yaml:"cta_clicks"`
	FormStarts     int     `json:"formStarts" yaml:"form_starts"`
	FilledForms    int     `json:"filledForms" yaml:"filled_forms"`
	ConversionRate float64 `json:"conversionRate" yaml:"conversion_rate"`
}

// FunnelStage is one bar of the conversion funnel. DropRate is relative to the
// previous stage and may be negative.
type FunnelStage struct {
	Step     string `json:"step" yaml:"step"`
	Count    int    `json:"count" yaml:"count"`
	DropRate int    `json:"dropRate" yaml:"drop_rate"`
}

// UTMStat is the attribution of one (source, campaign) pair.
type UTMStat struct {
	Source      string  `json:"source" yaml:"source"`
	Campaign    string  `json:"campaign" yaml:"campaign"`
	Clicks      int     `json:"clicks" yaml:"clicks"`
	Submissions int     `json:"submissions" yaml:"submissions"`
	Conversion  float64 `json:"conversion" yaml:"conversion"`
}

// TimePoint is the count of one event type on one day.
type TimePoint struct {
	Date  string `json:"date" yaml:"date"`
	Count int    `json:"count" yaml:"count"`
}

// Counts are the raw tallies stats and the funnel derive from.
type Counts struct {
	TotalVisits    int
	UniqueVisitors int
	CTAClicks      int
	FormStarts     int
	Applications   int
}

// Store is the persistence port. Implementations must be safe for concurrent use.
type Store interface {
	Open(ctx context.Context) error
	Close() error

	AppendEvent(ctx context.Context, e Event) error
	AppendApplication(ctx context.Context, a Application) error

	QueryStats(ctx context.Context) (Stats, error)
	QueryFunnel(ctx context.Context) ([]FunnelStage, error)
	QueryUTMStats(ctx context.Context) ([]UTMStat, error)
	QueryRecentApplications(ctx context.Context, limit int) ([]Application, error)
	QueryTimeSeries(ctx context.Context, eventType string, days int) ([]TimePoint, error)
}

// Listener observes successful writes.
type Listener interface {
	EventRecorded(e Event)
	ApplicationSubmitted(a Application)
}
