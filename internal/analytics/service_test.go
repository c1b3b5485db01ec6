package analytics

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/seuros/studybuddy/internal/utm"
	"github.com/seuros/studybuddy/internal/wizard"
)

type recordingListener struct {
	mu     sync.Mutex
	events []Event
	apps   []Application
}

func (r *recordingListener) EventRecorded(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingListener) ApplicationSubmitted(a Application) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps = append(r.apps, a)
}

// brokenStore fails every call.
type brokenStore struct{}

func (brokenStore) Open(context.Context) error               { return nil }
func (brokenStore) Close() error                             { return nil }
func (brokenStore) AppendEvent(context.Context, Event) error { return assert.AnError }
func (brokenStore) AppendApplication(context.Context, Application) error {
	return assert.AnError
}
func (brokenStore) QueryStats(context.Context) (Stats, error) { return Stats{}, assert.AnError }
func (brokenStore) QueryFunnel(context.Context) ([]FunnelStage, error) {
	return nil, assert.AnError
}
func (brokenStore) QueryUTMStats(context.Context) ([]UTMStat, error) { return nil, assert.AnError }
func (brokenStore) QueryRecentApplications(context.Context, int) ([]Application, error) {
	return nil, assert.AnError
}
func (brokenStore) QueryTimeSeries(context.Context, string, int) ([]TimePoint, error) {
	return nil, assert.AnError
}

func newTestService(t *testing.T) (*Service, *LocalStore, *recordingListener) {
	t.Helper()
	store := NewLocalStore(t.TempDir())
	listener := &recordingListener{}
	svc := NewService(store, Options{Listeners: []Listener{listener}})
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(func() { _ = svc.Dispose() })
	return svc, store, listener
}

func TestTrackStampsVisit(t *testing.T) {
	svc, store, listener := newTestService(t)
	src := "tg"
	tr := svc.Session(Visit{SessionID: "session_1", Route: "/", UTM: utm.Attribution{Source: &src}})

	tr.Track(context.Background(), EventCTAClick, map[string]any{"button": "hero"})
	tr.WithRoute("/quiz").Track(context.Background(), EventPageView, nil)

	require.Len(t, store.events, 2)
	first := store.events[0]
	assert.Equal(t, EventCTAClick, first.Type)
	assert.Equal(t, "session_1", first.SessionID)
	assert.Equal(t, "/", first.Route)
	assert.Equal(t, "tg", *first.UTM.Source)
	assert.Equal(t, "hero", first.Data["button"])
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "/quiz", store.events[1].Route)
	assert.Len(t, listener.events, 2)
}

func TestSubmitApplicationEmitsFormSubmit(t *testing.T) {
	svc, store, listener := newTestService(t)
	tr := svc.Session(Visit{SessionID: "session_2", Route: "/quiz"})

	app, err := tr.SubmitApplication(context.Background(), ApplicationData{Grade: "11", Email: "a@b.com"})
	require.NoError(t, err)
	require.NotNil(t, app)

	require.Len(t, store.applications, 1)
	require.Len(t, store.events, 1)
	assert.Equal(t, EventFormSubmit, store.events[0].Type)
	assert.Equal(t, app.ID, store.events[0].Data["application_id"])
	assert.Equal(t, "session_2", app.SessionID)
	assert.Len(t, listener.apps, 1)
}

func TestWizardSubmissionEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	tr := svc.Session(Visit{SessionID: "session_3", Route: "/quiz"})

	m := wizard.New(wizard.Config{GoalsMode: wizard.GoalsMultiple}, wizard.State{Answers: wizard.DefaultAnswers(wizard.GoalsMultiple)},
		wizard.Deps{Submitter: tr, Tracker: tr})
	defer m.Close()

	require.NoError(t, m.SetGrade(ctx, wizard.Grade11))
	require.NoError(t, m.Advance(ctx))
	require.NoError(t, m.ChooseGoal(ctx, "ЕГЭ"))
	require.NoError(t, m.Advance(ctx))
	require.NoError(t, m.ToggleSubject(ctx, "Математика"))
	require.NoError(t, m.Advance(ctx))
	require.NoError(t, m.SetExamScore(ctx, "85"))
	require.NoError(t, m.Advance(ctx))
	require.NoError(t, m.SetEmail(ctx, "a@b.com"))
	require.NoError(t, m.SetTelegram(ctx, "@ab12"))
	require.NoError(t, m.Advance(ctx))

	require.Len(t, store.applications, 1)
	app := store.applications[0]
	assert.Equal(t, []string{"ЕГЭ"}, app.Goals)
	assert.Equal(t, []string{"Математика"}, app.Subjects)

	submits := 0
	for _, e := range store.events {
		if e.Type == EventFormSubmit {
			submits++
		}
	}
	assert.Equal(t, 1, submits)

	receipt, done := m.Completed()
	require.True(t, done)
	assert.Equal(t, app.ID, receipt.ID)
}

func TestServiceRequiresInit(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := NewService(NewLocalStore(""), Options{Logger: zap.New(core)})
	tr := svc.Session(Visit{SessionID: "s"})

	tr.Track(context.Background(), EventPageView, nil)
	assert.Equal(t, 1, logs.Len())

	_, err := tr.SubmitApplication(context.Background(), ApplicationData{})
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, svc.Init(context.Background()))
	require.NoError(t, svc.Dispose())
	_, err = tr.SubmitApplication(context.Background(), ApplicationData{})
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestServiceQueriesDegradeToDefaults(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	svc := NewService(brokenStore{}, Options{Logger: zap.New(core)})
	require.NoError(t, svc.Init(ctx))

	assert.Equal(t, Stats{}, svc.GetStats(ctx))
	assert.Empty(t, svc.GetFunnelData(ctx))
	assert.NotNil(t, svc.GetFunnelData(ctx))
	assert.Empty(t, svc.GetUTMStats(ctx))
	assert.Empty(t, svc.GetRecentApplications(ctx, 5))
	assert.Empty(t, svc.GetTimeSeries(ctx, EventPageView, 7))

	tr := svc.Session(Visit{SessionID: "s"})
	tr.Track(ctx, EventPageView, nil)
	_, err := tr.Submit(ctx, wizard.DefaultAnswers(wizard.GoalsSingle))
	assert.ErrorIs(t, err, assert.AnError)
	assert.GreaterOrEqual(t, logs.Len(), 7)
}

func TestGetRecentApplicationsFormatsRows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	store := NewLocalStore("")
	svc := NewService(store, Options{Now: func() time.Time { return now }})
	require.NoError(t, svc.Init(ctx))

	_, err := svc.Session(Visit{SessionID: "s"}).SubmitApplication(ctx, ApplicationData{
		Grade: "11", Goals: []string{"ЕГЭ"}, Subjects: []string{"Математика", "Физика"}, ExamScore: "92",
	})
	require.NoError(t, err)

	rows := svc.GetRecentApplications(ctx, 5)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-06-03 14:30", rows[0].Date)
	assert.Equal(t, "Математика, Физика", rows[0].Subjects)
	assert.Equal(t, "92 балла", rows[0].Level)
}

func TestConversionZeroWithoutVisitors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	_, err := svc.Session(Visit{SessionID: "s"}).SubmitApplication(ctx, ApplicationData{})
	require.NoError(t, err)

	stats := svc.GetStats(ctx)
	assert.Equal(t, 1, stats.FilledForms)
	assert.Equal(t, 0.0, stats.ConversionRate)
}

func TestNewSessionID(t *testing.T) {
	now := time.UnixMilli(1717420200000)
	id := NewSessionID(now)
	assert.Regexp(t, regexp.MustCompile(`^session_1717420200000_[0-9a-z]{9}$`), id)
	assert.NotEqual(t, id, NewSessionID(now))
}

func TestFromAnswersNeverNilLists(t *testing.T) {
	d := FromAnswers(wizard.DefaultAnswers(wizard.GoalsSingle))
	assert.NotNil(t, d.Goals)
	assert.NotNil(t, d.Subjects)
	assert.Equal(t, wizard.DefaultSelfAssessment, d.SelfAssessment)
}
