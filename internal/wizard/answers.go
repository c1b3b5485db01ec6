package wizard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// GoalsMode fixes the shape of the goals answer for a deployment.
type GoalsMode string

const (
	GoalsSingle   GoalsMode = "single"
	GoalsMultiple GoalsMode = "multiple"
)

// Goals is either a single selected goal or a set of goals. It encodes as a JSON
// string or a JSON array respectively, matching both shapes found in stored progress.
type Goals struct {
	mode   GoalsMode
	single string
	multi  []string
}

// SingleGoal returns a single-valued selection; an empty value means unset.
func SingleGoal(v string) Goals {
	return Goals{mode: GoalsSingle, single: v}
}

// MultipleGoals returns a set-valued selection.
func MultipleGoals(v ...string) Goals {
	g := Goals{mode: GoalsMultiple}
	if len(v) > 0 {
		g.multi = slices.Clone(v)
	}
	return g
}

// NoGoals returns the empty selection for the given mode.
func NoGoals(mode GoalsMode) Goals {
	if mode == GoalsSingle {
		return SingleGoal("")
	}
	return MultipleGoals()
}

// Mode reports the union tag.
func (g Goals) Mode() GoalsMode { return g.mode }

// Values lists the selected goals in selection order.
func (g Goals) Values() []string {
	if g.mode == GoalsSingle {
		if g.single == "" {
			return nil
		}
		return []string{g.single}
	}
	return slices.Clone(g.multi)
}

// Len is the number of selected goals.
func (g Goals) Len() int {
	if g.mode == GoalsSingle {
		if g.single == "" {
			return 0
		}
		return 1
	}
	return len(g.multi)
}

// Contains reports whether v is selected.
func (g Goals) Contains(v string) bool {
	if g.mode == GoalsSingle {
		return g.single != "" && g.single == v
	}
	return slices.Contains(g.multi, v)
}

// As converts the selection to another mode. Converting a set to a single value keeps
// the first selected goal.
func (g Goals) As(mode GoalsMode) Goals {
	if g.mode == mode {
		return g
	}
	values := g.Values()
	if mode == GoalsSingle {
		if len(values) == 0 {
			return SingleGoal("")
		}
		return SingleGoal(values[0])
	}
	return MultipleGoals(values...)
}

func (g Goals) toggle(v string) Goals {
	if i := slices.Index(g.multi, v); i >= 0 {
		return MultipleGoals(slices.Delete(slices.Clone(g.multi), i, i+1)...)
	}
	return MultipleGoals(append(slices.Clone(g.multi), v)...)
}

func (g Goals) MarshalJSON() ([]byte, error) {
	if g.mode == GoalsSingle {
		return json.Marshal(g.single)
	}
	if g.multi == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(g.multi)
}

func (g *Goals) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*g = Goals{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = SingleGoal(s)
		return nil
	case len(data) > 0 && data[0] == '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*g = MultipleGoals(list...)
		return nil
	default:
		return fmt.Errorf("goals: unexpected JSON %s", data)
	}
}

// DefaultSelfAssessment is the slider's starting position.
const DefaultSelfAssessment = 5

// Answers is the accumulated questionnaire response.
type Answers struct {
	Grade          string   `json:"grade"`
	Goals          Goals    `json:"goals"`
	Subjects       []string `json:"subjects"`
	Level          string   `json:"level"`
	ExamScore      string   `json:"examScore"`
	SelfAssessment int      `json:"selfAssessment"`
	Email          string   `json:"email"`
	Telegram       string   `json:"telegram"`
}

// DefaultAnswers is the state of a wizard nobody has touched yet.
func DefaultAnswers(mode GoalsMode) Answers {
	return Answers{
		Goals:          NoGoals(mode),
		SelfAssessment: DefaultSelfAssessment,
	}
}

func (a Answers) clone() Answers {
	out := a
	if a.Goals.mode == GoalsMultiple {
		out.Goals = MultipleGoals(a.Goals.multi...)
	}
	out.Subjects = slices.Clone(a.Subjects)
	return out
}

// State is the persisted position of a wizard.
type State struct {
	Step    int     `json:"step"`
	Answers Answers `json:"answers"`
}
