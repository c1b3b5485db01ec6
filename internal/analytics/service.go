package analytics

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seuros/studybuddy/internal/utm"
	"github.com/seuros/studybuddy/internal/wizard"
)

// ErrNotInitialized is returned by writes before Init or after Dispose.
var ErrNotInitialized = errors.New("analytics: service not initialized")

// Options configure a Service.
type Options struct {
	Logger    *zap.Logger
	Listeners []Listener
	Now       func() time.Time
}

// Service is the event and application recorder shared by all handlers. Construct
// one per process and pass it to its consumers.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	listeners []Listener
	ready     bool
}

// NewService wraps a store. Call Init before recording.
func NewService(store Store, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     store,
		logger:    opts.Logger,
		now:       opts.Now,
		listeners: opts.Listeners,
	}
}

// Init opens the store.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.store.Open(ctx); err != nil {
		return fmt.Errorf("open analytics store: %w", err)
	}
	s.ready = true
	return nil
}

// Dispose closes the store. Later writes fail with ErrNotInitialized.
func (s *Service) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil
	}
	s.ready = false
	return s.store.Close()
}

// AddListener registers an observer of successful writes.
func (s *Service) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Service) snapshotListeners() ([]Listener, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listeners, s.ready
}

// Visit identifies who is acting and from where.
type Visit struct {
	SessionID string
	Route     string
	UTM       utm.Attribution
}

// Session returns a recorder bound to a visitor.
func (s *Service) Session(v Visit) *Tracker {
	return &Tracker{svc: s, visit: v}
}

func (s *Service) recordEvent(ctx context.Context, v Visit, eventType string, data map[string]any) (Event, error) {
	listeners, ready := s.snapshotListeners()
	if !ready {
		return Event{}, ErrNotInitialized
	}
	e := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: v.SessionID,
		Route:     v.Route,
		Data:      data,
		UTM:       v.UTM,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.AppendEvent(ctx, e); err != nil {
		return Event{}, err
	}
	for _, l := range listeners {
		l.EventRecorded(e)
	}
	return e, nil
}

func (s *Service) recordApplication(ctx context.Context, v Visit, data ApplicationData) (*Application, error) {
	listeners, ready := s.snapshotListeners()
	if !ready {
		return nil, ErrNotInitialized
	}
	a := Application{
		ID:              uuid.NewString(),
		SessionID:       v.SessionID,
		ApplicationData: data,
		UTM:             v.UTM,
		SubmittedAt:     s.now().UTC(),
	}
	if err := s.store.AppendApplication(ctx, a); err != nil {
		return nil, err
	}
	for _, l := range listeners {
		l.ApplicationSubmitted(a)
	}
	return &a, nil
}

// GetStats returns the headline figures, or zeros when the store fails.
func (s *Service) GetStats(ctx context.Context) Stats {
	stats, err := s.store.QueryStats(ctx)
	if err != nil {
		s.logger.Warn("failed to query stats", zap.Error(err))
		return Stats{}
	}
	return stats
}

// GetFunnelData returns the funnel, or an empty list when the store fails.
func (s *Service) GetFunnelData(ctx context.Context) []FunnelStage {
	stages, err := s.store.QueryFunnel(ctx)
	if err != nil {
		s.logger.Warn("failed to query funnel", zap.Error(err))
		return []FunnelStage{}
	}
	return stages
}

// GetUTMStats returns attribution groups, or an empty list when the store fails.
func (s *Service) GetUTMStats(ctx context.Context) []UTMStat {
	stats, err := s.store.QueryUTMStats(ctx)
	if err != nil {
		s.logger.Warn("failed to query utm stats", zap.Error(err))
		return []UTMStat{}
	}
	return stats
}

// GetRecentApplications returns the newest applications as display rows.
func (s *Service) GetRecentApplications(ctx context.Context, limit int) []ApplicationRow {
	apps, err := s.store.QueryRecentApplications(ctx, limit)
	if err != nil {
		s.logger.Warn("failed to query recent applications", zap.Error(err))
		return []ApplicationRow{}
	}
	rows := make([]ApplicationRow, 0, len(apps))
	for _, a := range apps {
		rows = append(rows, DisplayRow(a))
	}
	return rows
}

// GetTimeSeries returns daily counts of one event type.
func (s *Service) GetTimeSeries(ctx context.Context, eventType string, days int) []TimePoint {
	points, err := s.store.QueryTimeSeries(ctx, eventType, days)
	if err != nil {
		s.logger.Warn("failed to query time series", zap.String("event_type", eventType), zap.Error(err))
		return []TimePoint{}
	}
	return points
}

// Tracker records on behalf of one visitor. It implements wizard.Tracker and
// wizard.Submitter.
type Tracker struct {
	svc   *Service
	visit Visit
}

// Visit returns the bound visitor.
func (t *Tracker) Visit() Visit { return t.visit }

// WithRoute returns a copy recording under another route.
func (t *Tracker) WithRoute(route string) *Tracker {
	v := t.visit
	v.Route = route
	return &Tracker{svc: t.svc, visit: v}
}

// Track appends an event. Failures are logged and never reach the caller.
func (t *Tracker) Track(ctx context.Context, eventType string, data map[string]any) {
	if _, err := t.svc.recordEvent(ctx, t.visit, eventType, data); err != nil {
		t.svc.logger.Warn("failed to record event",
			zap.String("event_type", eventType),
			zap.String("session_id", t.visit.SessionID),
			zap.Error(err))
	}
}

// SubmitApplication stores the application and emits a form_submit event
// referencing it.
func (t *Tracker) SubmitApplication(ctx context.Context, data ApplicationData) (*Application, error) {
	app, err := t.svc.recordApplication(ctx, t.visit, data)
	if err != nil {
		t.svc.logger.Error("failed to store application", zap.String("session_id", t.visit.SessionID), zap.Error(err))
		return nil, err
	}
	t.Track(ctx, EventFormSubmit, map[string]any{"application_id": app.ID})
	return app, nil
}

// Submit adapts a finished questionnaire for the wizard.
func (t *Tracker) Submit(ctx context.Context, a wizard.Answers) (wizard.Receipt, error) {
	app, err := t.SubmitApplication(ctx, FromAnswers(a))
	if err != nil {
		return wizard.Receipt{}, err
	}
	return wizard.Receipt{ID: app.ID, SubmittedAt: app.SubmittedAt}, nil
}

// FromAnswers converts wizard answers into an application payload.
func FromAnswers(a wizard.Answers) ApplicationData {
	goals := a.Goals.Values()
	if goals == nil {
		goals = []string{}
	}
	subjects := a.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	return ApplicationData{
		Grade:          a.Grade,
		Goals:          goals,
		Subjects:       subjects,
		Level:          a.Level,
		ExamScore:      a.ExamScore,
		SelfAssessment: a.SelfAssessment,
		Email:          a.Email,
		Telegram:       a.Telegram,
	}
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionID returns an identifier of the form session_<unix ms>_<9 random chars>.
func NewSessionID(now time.Time) string {
	var b strings.Builder
	b.WriteString("session_")
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	for range 9 {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}
