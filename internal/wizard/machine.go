package wizard

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Persister stores the wizard position after every change.
type Persister interface {
	Save(ctx context.Context, s State) error
	Clear(ctx context.Context) error
}

// Receipt identifies an accepted application.
type Receipt struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Submitter hands a finished answer set to the analytics store.
type Submitter interface {
	Submit(ctx context.Context, a Answers) (Receipt, error)
}

// Tracker records wizard events. Implementations must not fail the caller.
type Tracker interface {
	Track(ctx context.Context, eventType string, data map[string]any)
}

// EventStepComplete is emitted each time Advance leaves a valid step.
const EventStepComplete = "form_step_complete"

// Deps are the collaborators of a Machine. Nil members are skipped.
type Deps struct {
	Persister Persister
	Submitter Submitter
	Tracker   Tracker
	Logger    *zap.Logger
}

// Machine is one visitor's questionnaire. It is safe for concurrent use.
type Machine struct {
	mu   sync.Mutex
	cfg  Config
	deps Deps

	step    int
	answers Answers
	errors  []FieldError

	// option lists derived from the current grade
	goalOptions    []string
	subjectOptions []string

	completed bool
	receipt   Receipt

	timer  *time.Timer
	gen    uint64
	closed bool
}

// New creates a machine positioned at the given state. The step index is clamped
// into range and the goals are converted to the configured mode.
func New(cfg Config, initial State, deps Deps) *Machine {
	cfg = cfg.normalized()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	a := initial.Answers.clone()
	a.Goals = a.Goals.As(cfg.GoalsMode)
	if a.SelfAssessment < 1 || a.SelfAssessment > 10 {
		a.SelfAssessment = DefaultSelfAssessment
	}
	m := &Machine{
		cfg:     cfg,
		deps:    deps,
		step:    min(max(initial.Step, 0), StepCount-1),
		answers: a,
	}
	m.deriveOptions()
	return m
}

func (m *Machine) deriveOptions() {
	m.goalOptions = GoalsFor(m.answers.Grade)
	m.subjectOptions = SubjectsFor(m.answers.Grade)
}

// Config returns the variant the machine runs with.
func (m *Machine) Config() Config { return m.cfg }

// State returns a copy of the current position.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Step: m.step, Answers: m.answers.clone()}
}

// Completed reports whether the application was submitted, and its receipt.
func (m *Machine) Completed() (Receipt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receipt, m.completed
}

// SetGrade selects the grade. A different grade resets goals and subjects.
func (m *Machine) SetGrade(ctx context.Context, grade string) error {
	return m.mutate(ctx, "grade", func() error {
		g, ok := matchOption(grades, grade)
		if !ok {
			return fmt.Errorf("%w: grade %q", ErrUnknownOption, grade)
		}
		if g != m.answers.Grade {
			m.answers.Grade = g
			m.answers.Goals = NoGoals(m.cfg.GoalsMode)
			m.answers.Subjects = nil
			m.answers.Level = ""
			m.answers.ExamScore = ""
			m.deriveOptions()
		}
		return nil
	})
}

// ChooseGoal selects a goal in single mode and toggles it in multiple mode.
func (m *Machine) ChooseGoal(ctx context.Context, goal string) error {
	return m.mutate(ctx, "goals", func() error {
		g, ok := matchOption(m.goalOptions, goal)
		if !ok {
			return fmt.Errorf("%w: goal %q", ErrUnknownOption, goal)
		}
		if m.cfg.GoalsMode == GoalsSingle {
			m.answers.Goals = SingleGoal(g)
		} else {
			m.answers.Goals = m.answers.Goals.toggle(g)
		}
		return nil
	})
}

// ToggleSubject adds or removes a subject.
func (m *Machine) ToggleSubject(ctx context.Context, subject string) error {
	return m.mutate(ctx, "subjects", func() error {
		s, ok := matchOption(m.subjectOptions, subject)
		if !ok {
			return fmt.Errorf("%w: subject %q", ErrUnknownOption, subject)
		}
		if i := slices.Index(m.answers.Subjects, s); i >= 0 {
			m.answers.Subjects = slices.Delete(slices.Clone(m.answers.Subjects), i, i+1)
		} else {
			m.answers.Subjects = append(slices.Clone(m.answers.Subjects), s)
		}
		return nil
	})
}

// SetExamScore stores the raw score text. It is checked when the level step is left.
func (m *Machine) SetExamScore(ctx context.Context, score string) error {
	return m.mutate(ctx, "examScore", func() error {
		m.answers.ExamScore = score
		return nil
	})
}

// SetOlympiadTier selects the olympiad level.
func (m *Machine) SetOlympiadTier(ctx context.Context, tier string) error {
	return m.mutate(ctx, "level", func() error {
		t, ok := matchOption(olympiadTiers, tier)
		if !ok {
			return fmt.Errorf("%w: olympiad tier %q", ErrUnknownOption, tier)
		}
		m.answers.Level = t
		return nil
	})
}

// SetSelfAssessment moves the 1..10 slider.
func (m *Machine) SetSelfAssessment(ctx context.Context, n int) error {
	return m.mutate(ctx, "selfAssessment", func() error {
		if n < 1 || n > 10 {
			return fmt.Errorf("%w: self assessment %d", ErrUnknownOption, n)
		}
		m.answers.SelfAssessment = n
		return nil
	})
}

// SetEmail stores the contact email as typed.
func (m *Machine) SetEmail(ctx context.Context, email string) error {
	return m.mutate(ctx, "email", func() error {
		m.answers.Email = email
		return nil
	})
}

// SetTelegram stores the telegram handle as typed.
func (m *Machine) SetTelegram(ctx context.Context, handle string) error {
	return m.mutate(ctx, "telegram", func() error {
		m.answers.Telegram = handle
		return nil
	})
}

// Apply routes a named field mutation, as sent by the HTTP layer.
func (m *Machine) Apply(ctx context.Context, field, value string) error {
	switch field {
	case "grade":
		return m.SetGrade(ctx, value)
	case "goals", "goal":
		return m.ChooseGoal(ctx, value)
	case "subjects", "subject":
		return m.ToggleSubject(ctx, value)
	case "examScore":
		return m.SetExamScore(ctx, value)
	case "level":
		return m.SetOlympiadTier(ctx, value)
	case "selfAssessment":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: self assessment %q", ErrUnknownOption, value)
		}
		return m.SetSelfAssessment(ctx, n)
	case "email":
		return m.SetEmail(ctx, value)
	case "telegram":
		return m.SetTelegram(ctx, value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

func (m *Machine) mutate(ctx context.Context, field string, apply func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completed {
		return ErrCompleted
	}
	m.cancelTimer()
	if err := apply(); err != nil {
		return err
	}
	m.errors = slices.DeleteFunc(m.errors, func(e FieldError) bool { return e.Field == field })
	m.persist(ctx)
	m.scheduleAdvance()
	return nil
}

// Advance leaves the current step when it is valid. From the last step it submits
// the sanitized answers and clears the stored progress.
func (m *Machine) Advance(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advance(ctx)
}

func (m *Machine) advance(ctx context.Context) error {
	if m.completed {
		return ErrCompleted
	}
	m.cancelTimer()
	id := stepOrder[m.step]
	if errs := validateStep(id, m.answers, m.cfg); len(errs) > 0 {
		m.errors = errs
		return &ValidationError{Step: id, Fields: slices.Clone(errs)}
	}
	if m.step == StepCount-1 {
		// Earlier answers may have been edited since their step was passed.
		for i, prev := range stepOrder[:m.step] {
			if errs := validateStep(prev, m.answers, m.cfg); len(errs) > 0 {
				m.step = i
				m.errors = errs
				m.persist(ctx)
				return &ValidationError{Step: prev, Fields: slices.Clone(errs)}
			}
		}
	}
	m.errors = nil
	m.track(ctx, EventStepComplete, map[string]any{"step": string(id), "step_index": m.step})

	if m.step < StepCount-1 {
		m.step++
		m.persist(ctx)
		return nil
	}

	if m.deps.Submitter == nil {
		return fmt.Errorf("%w: no submitter configured", ErrSubmission)
	}
	receipt, err := m.deps.Submitter.Submit(ctx, Sanitize(m.answers))
	if err != nil {
		m.deps.Logger.Warn("application submission failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrSubmission, err)
	}
	m.completed = true
	m.receipt = receipt
	if m.deps.Persister != nil {
		if err := m.deps.Persister.Clear(ctx); err != nil {
			m.deps.Logger.Warn("failed to clear wizard progress", zap.Error(err))
		}
	}
	return nil
}

// Retreat moves back one step without validation. It is a no-op on the first step.
func (m *Machine) Retreat(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completed {
		return ErrCompleted
	}
	m.cancelTimer()
	if m.step == 0 {
		return nil
	}
	m.step--
	m.errors = nil
	m.persist(ctx)
	return nil
}

// KeyPress handles a keyboard shortcut. Enter advances when the current step is
// valid; it reports whether the wizard moved.
func (m *Machine) KeyPress(ctx context.Context, key string) (bool, error) {
	if key != "Enter" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completed || !m.canAdvance() {
		return false, nil
	}
	if err := m.advance(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Close cancels a pending auto-advance. The machine keeps answering reads.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cancelTimer()
}

func (m *Machine) canAdvance() bool {
	return len(validateStep(stepOrder[m.step], m.answers, m.cfg)) == 0
}

func (m *Machine) persist(ctx context.Context) {
	if m.deps.Persister == nil {
		return
	}
	if err := m.deps.Persister.Save(ctx, State{Step: m.step, Answers: m.answers.clone()}); err != nil {
		m.deps.Logger.Warn("failed to save wizard progress", zap.Int("step", m.step), zap.Error(err))
	}
}

func (m *Machine) track(ctx context.Context, event string, data map[string]any) {
	if m.deps.Tracker != nil {
		m.deps.Tracker.Track(ctx, event, data)
	}
}

// scheduleAdvance arms the auto-advance timer after a single-select answer.
// Callers hold m.mu.
func (m *Machine) scheduleAdvance() {
	if m.closed || m.cfg.AutoAdvanceDelay <= 0 || m.step >= StepCount-1 {
		return
	}
	if !m.singleChoice() || !m.canAdvance() {
		return
	}
	m.gen++
	gen := m.gen
	m.timer = time.AfterFunc(m.cfg.AutoAdvanceDelay, func() { m.autoAdvance(gen) })
}

// singleChoice reports whether the current step is answered by one pick. The
// level step is when it shows olympiad tiers.
func (m *Machine) singleChoice() bool {
	id := stepOrder[m.step]
	if id == StepLevel {
		return LevelInputFor(m.cfg.LevelMode, m.answers.Goals) == LevelInputOlympiadTier
	}
	return kindOf(id, m.cfg) == KindSingle
}

func (m *Machine) autoAdvance(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.completed || gen != m.gen {
		return
	}
	m.timer = nil
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.advance(ctx); err != nil {
		m.deps.Logger.Debug("auto-advance skipped", zap.Error(err))
	}
}

func (m *Machine) cancelTimer() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
