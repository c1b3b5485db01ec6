package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/seuros/studybuddy/internal/validation"
)

// LevelMode selects how the level step measures the student.
type LevelMode string

const (
	// LevelByGoal asks for an exam score or an olympiad tier depending on the goals.
	LevelByGoal LevelMode = "goal"
	// LevelSelfAssessment always shows the 1..10 slider.
	LevelSelfAssessment LevelMode = "self_assessment"
)

// Config fixes the per-deployment wizard variant.
type Config struct {
	GoalsMode GoalsMode
	LevelMode LevelMode
	// AutoAdvanceDelay is the pause between picking a single-select option and
	// moving on. Zero disables auto-advance.
	AutoAdvanceDelay time.Duration
}

func (c Config) normalized() Config {
	if c.GoalsMode != GoalsSingle {
		c.GoalsMode = GoalsMultiple
	}
	if c.LevelMode != LevelSelfAssessment {
		c.LevelMode = LevelByGoal
	}
	if c.AutoAdvanceDelay < 0 {
		c.AutoAdvanceDelay = 0
	}
	return c
}

// StepID names a wizard step.
type StepID string

const (
	StepGrade    StepID = "grade"
	StepGoals    StepID = "goals"
	StepSubjects StepID = "subjects"
	StepLevel    StepID = "level"
	StepContacts StepID = "contacts"
)

var stepOrder = []StepID{StepGrade, StepGoals, StepSubjects, StepLevel, StepContacts}

// IsStep reports whether id names a wizard step.
func IsStep(id string) bool {
	_, ok := stepTitles[StepID(id)]
	return ok
}

// StepCount is the number of configured steps.
var StepCount = len(stepOrder)

var stepTitles = map[StepID]string{
	StepGrade:    "В каком ты классе?",
	StepGoals:    "Какие у тебя цели?",
	StepSubjects: "По каким предметам нужна помощь?",
	StepLevel:    "Какой у тебя текущий уровень?",
	StepContacts: "Как с тобой связаться?",
}

// Kind describes how a step collects its answer.
type Kind string

const (
	KindSingle   Kind = "single"
	KindMulti    Kind = "multi"
	KindLevel    Kind = "level"
	KindContacts Kind = "contacts"
)

// LevelInput is the concrete control the level step shows.
type LevelInput string

const (
	LevelInputNone           LevelInput = "none"
	LevelInputExamScore      LevelInput = "exam_score"
	LevelInputOlympiadTier   LevelInput = "olympiad_tier"
	LevelInputSelfAssessment LevelInput = "self_assessment"
)

// LevelInputFor decides the level control for the chosen goals. Exam goals take
// precedence over olympiads.
func LevelInputFor(mode LevelMode, goals Goals) LevelInput {
	if mode == LevelSelfAssessment {
		return LevelInputSelfAssessment
	}
	values := goals.Values()
	for _, g := range values {
		if isExamGoal(g) {
			return LevelInputExamScore
		}
	}
	for _, g := range values {
		if isOlympiadGoal(g) {
			return LevelInputOlympiadTier
		}
	}
	return LevelInputNone
}

func kindOf(id StepID, cfg Config) Kind {
	switch id {
	case StepGrade:
		return KindSingle
	case StepGoals:
		if cfg.GoalsMode == GoalsSingle {
			return KindSingle
		}
		return KindMulti
	case StepSubjects:
		return KindMulti
	case StepLevel:
		return KindLevel
	default:
		return KindContacts
	}
}

// FieldError is an inline validation message for one answer field.
type FieldError struct {
	Field   string `json:"field"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

var (
	// ErrStepInvalid is matched by *ValidationError.
	ErrStepInvalid = errors.New("wizard: current step is not complete")
	// ErrUnknownOption rejects a value outside the step's option set.
	ErrUnknownOption = errors.New("wizard: unknown option")
	// ErrUnknownField rejects a mutation of a field the wizard does not have.
	ErrUnknownField = errors.New("wizard: unknown field")
	// ErrCompleted rejects any operation on a submitted wizard.
	ErrCompleted = errors.New("wizard: already submitted")
	// ErrSubmission wraps a failed hand-off to the analytics store.
	ErrSubmission = errors.New("wizard: submission failed")
)

// ValidationError lists why the current step cannot be left.
type ValidationError struct {
	Step   StepID
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		keys = append(keys, f.Field+":"+f.Key)
	}
	return fmt.Sprintf("wizard: step %s incomplete (%s)", e.Step, strings.Join(keys, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrStepInvalid }

const keyRequired = string(validation.Required)

// validateStep returns the field errors blocking Advance from the given step.
func validateStep(id StepID, a Answers, cfg Config) []FieldError {
	switch id {
	case StepGrade:
		if a.Grade == "" {
			return []FieldError{{Field: "grade", Key: keyRequired, Message: "Выбери класс или статус"}}
		}
	case StepGoals:
		n := a.Goals.Len()
		if cfg.GoalsMode == GoalsSingle && n != 1 {
			return []FieldError{{Field: "goals", Key: keyRequired, Message: "Выбери цель"}}
		}
		if n == 0 {
			return []FieldError{{Field: "goals", Key: keyRequired, Message: "Выбери хотя бы одну цель"}}
		}
	case StepSubjects:
		if len(a.Subjects) == 0 {
			return []FieldError{{Field: "subjects", Key: keyRequired, Message: "Выбери хотя бы один предмет"}}
		}
	case StepLevel:
		return validateLevel(a, cfg)
	case StepContacts:
		var errs []FieldError
		if k := validation.ValidateEmail(strings.TrimSpace(a.Email)); k != validation.OK {
			errs = append(errs, FieldError{Field: "email", Key: string(k), Message: validation.EmailMessage(k)})
		}
		if k := validation.ValidateTelegramHandle(strings.TrimSpace(a.Telegram)); k != validation.OK {
			errs = append(errs, FieldError{Field: "telegram", Key: string(k), Message: validation.TelegramMessage(k)})
		}
		return errs
	}
	return nil
}

func validateLevel(a Answers, cfg Config) []FieldError {
	switch LevelInputFor(cfg.LevelMode, a.Goals) {
	case LevelInputExamScore:
		score := strings.TrimSpace(a.ExamScore)
		if score == "" {
			return []FieldError{{Field: "examScore", Key: keyRequired, Message: "Введи количество баллов"}}
		}
		if _, ok := parseExamScore(score); !ok {
			return []FieldError{{Field: "examScore", Key: string(validation.InvalidFormat), Message: "Баллы должны быть числом от 0 до 100"}}
		}
	case LevelInputOlympiadTier:
		if a.Level == "" {
			return []FieldError{{Field: "level", Key: keyRequired, Message: "Выбери уровень олимпиады"}}
		}
	}
	return nil
}

func parseExamScore(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}
