package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/seuros/studybuddy/internal/analytics"
	"github.com/seuros/studybuddy/internal/httpx"
	"github.com/seuros/studybuddy/internal/middleware"
	"github.com/seuros/studybuddy/internal/progress"
	"github.com/seuros/studybuddy/internal/wizard"
)

const quizRoute = "/quiz"

// machine returns the visitor's questionnaire, restoring saved progress when a new
// one is built. A visitor starting from scratch records form_start.
func (a *API) machine(ctx context.Context, c fiber.Ctx) (*wizard.Machine, error) {
	v := middleware.GetVisitor(c)
	if v == nil {
		return nil, errors.New("visitor middleware not installed")
	}
	tracker := a.tracker(c, quizRoute)

	m, started, err := a.Wizards.Acquire(ctx, v.SessionID, func(ctx context.Context) (*wizard.Machine, bool, error) {
		deps := wizard.Deps{
			Submitter: tracker,
			Tracker:   tracker,
			Logger:    a.logger().With(zap.String("session_id", v.SessionID)),
		}
		state := wizard.State{Answers: wizard.DefaultAnswers(a.WizardConfig.GoalsMode)}
		restored := false
		if a.Progress != nil {
			keeper := progress.NewKeeper(a.Progress, v.SessionID, a.logger())
			state, restored = keeper.Restore(ctx, a.WizardConfig.GoalsMode)
			deps.Persister = keeper
		}
		return wizard.New(a.WizardConfig, state, deps), restored, nil
	})
	if err != nil {
		return nil, err
	}
	if started {
		tracker.Track(ctx, analytics.EventFormStart, nil)
	}
	return m, nil
}

// withMachine runs fn against the visitor's questionnaire under a request timeout.
func (a *API) withMachine(c fiber.Ctx, fn func(ctx context.Context, m *wizard.Machine) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m, err := a.machine(ctx, c)
	if err != nil {
		a.logger().Error("failed to load questionnaire", zap.Error(err))
		return httpx.Error(c, fiber.StatusInternalServerError, "Failed to load questionnaire")
	}
	if err := fn(ctx, m); err != nil {
		return a.wizardError(c, m, err)
	}
	return c.JSON(m.View())
}

func (a *API) wizardError(c fiber.Ctx, m *wizard.Machine, err error) error {
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Step is not complete",
			"fields": verr.Fields,
			"view":   m.View(),
		})
	case errors.Is(err, wizard.ErrUnknownOption), errors.Is(err, wizard.ErrUnknownField):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
			"view":  m.View(),
		})
	case errors.Is(err, wizard.ErrCompleted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Application already submitted",
			"view":  m.View(),
		})
	case errors.Is(err, wizard.ErrSubmission):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Не удалось отправить заявку, попробуй ещё раз",
			"view":  m.View(),
		})
	default:
		a.logger().Error("questionnaire operation failed", zap.Error(err))
		return httpx.Error(c, fiber.StatusInternalServerError, "Questionnaire error")
	}
}

func (a *API) handleWizardView(c fiber.Ctx) error {
	return a.withMachine(c, func(context.Context, *wizard.Machine) error { return nil })
}

func (a *API) handleWizardAnswer(c fiber.Ctx) error {
	var req AnswerRequest
	if handled, err := httpx.BindJSON(c, &req); handled {
		return err
	}
	value, err := stringValue(req.Value)
	if err != nil {
		return httpx.Error(c, fiber.StatusBadRequest, "Value must be a string or a number")
	}
	return a.withMachine(c, func(ctx context.Context, m *wizard.Machine) error {
		return m.Apply(ctx, req.Field, value)
	})
}

func (a *API) handleWizardNext(c fiber.Ctx) error {
	return a.withMachine(c, func(ctx context.Context, m *wizard.Machine) error {
		return m.Advance(ctx)
	})
}

func (a *API) handleWizardBack(c fiber.Ctx) error {
	return a.withMachine(c, func(ctx context.Context, m *wizard.Machine) error {
		return m.Retreat(ctx)
	})
}

func (a *API) handleWizardKey(c fiber.Ctx) error {
	var req KeyRequest
	if handled, err := httpx.BindJSON(c, &req); handled {
		return err
	}
	return a.withMachine(c, func(ctx context.Context, m *wizard.Machine) error {
		_, err := m.KeyPress(ctx, req.Key)
		return err
	})
}
