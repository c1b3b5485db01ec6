package wizard

import "slices"

// View is what the client renders for the current step.
type View struct {
	Step          int          `json:"step"`
	StepCount     int          `json:"stepCount"`
	StepID        StepID       `json:"stepId"`
	Title         string       `json:"title"`
	Kind          Kind         `json:"kind"`
	Options       []string     `json:"options,omitempty"`
	LevelInput    LevelInput   `json:"levelInput,omitempty"`
	Answers       Answers      `json:"answers"`
	Errors        []FieldError `json:"errors,omitempty"`
	CanAdvance    bool         `json:"canAdvance"`
	IsLast        bool         `json:"isLast"`
	Progress      int          `json:"progress"`
	AutoAdvanceMS int64        `json:"autoAdvanceMs"`
	Completed     bool         `json:"completed"`
	ApplicationID string       `json:"applicationId,omitempty"`
}

// View snapshots the machine for rendering.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := stepOrder[m.step]
	v := View{
		Step:       m.step,
		StepCount:  StepCount,
		StepID:     id,
		Title:      stepTitles[id],
		Kind:       kindOf(id, m.cfg),
		Answers:    m.answers.clone(),
		Errors:     slices.Clone(m.errors),
		CanAdvance: !m.completed && m.canAdvance(),
		IsLast:     m.step == StepCount-1,
		Progress:   (m.step + 1) * 100 / StepCount,
		Completed:  m.completed,
	}
	if m.singleChoice() && !v.IsLast {
		v.AutoAdvanceMS = m.cfg.AutoAdvanceDelay.Milliseconds()
	}
	switch id {
	case StepGrade:
		v.Options = Grades()
	case StepGoals:
		v.Options = slices.Clone(m.goalOptions)
	case StepSubjects:
		v.Options = slices.Clone(m.subjectOptions)
	case StepLevel:
		v.LevelInput = LevelInputFor(m.cfg.LevelMode, m.answers.Goals)
		if v.LevelInput == LevelInputOlympiadTier {
			v.Options = OlympiadTiers()
		}
	}
	if m.completed {
		v.ApplicationID = m.receipt.ID
		v.Progress = 100
	}
	return v
}
