package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoalsForGrade(t *testing.T) {
	assert.Equal(t, []string{GoalOGE, GoalOlympiad, GoalProjects}, GoalsFor(Grade9))
	assert.Equal(t, []string{GoalEGE, GoalOlympiad, GoalProjects}, GoalsFor(Grade11))
	assert.Equal(t, []string{GoalEGE, GoalAdmission}, GoalsFor(GradeGraduate))
	assert.Contains(t, GoalsFor(GradeStudentHi), GoalSession)
	assert.Nil(t, GoalsFor("7"))
}

func TestSubjectsForGrade(t *testing.T) {
	assert.NotContains(t, SubjectsFor(Grade9), "📊 Профильная математика")
	assert.Contains(t, SubjectsFor(Grade10), "📊 Профильная математика")
	assert.Contains(t, SubjectsFor(GradeStudentLo), "💻 Программирование")
	assert.Nil(t, SubjectsFor(""))
}

func TestOptionListsAreCopies(t *testing.T) {
	list := GoalsFor(Grade10)
	list[0] = "mutated"
	assert.Equal(t, GoalEGE, GoalsFor(Grade10)[0])
}

func TestMatchOptionIgnoresDecorations(t *testing.T) {
	got, ok := matchOption(SubjectsFor(Grade11), "Математика")
	assert.True(t, ok)
	assert.Equal(t, "📐 Математика", got)

	got, ok = matchOption(SubjectsFor(Grade11), "🇬🇧 Английский  язык")
	assert.True(t, ok)
	assert.Equal(t, "🇬🇧 Английский язык", got)

	_, ok = matchOption(SubjectsFor(Grade11), "Астрология")
	assert.False(t, ok)
	_, ok = matchOption(SubjectsFor(Grade11), "  ")
	assert.False(t, ok)
}

func TestLevelInputFor(t *testing.T) {
	assert.Equal(t, LevelInputExamScore, LevelInputFor(LevelByGoal, MultipleGoals(GoalOlympiad, GoalEGE)))
	assert.Equal(t, LevelInputOlympiadTier, LevelInputFor(LevelByGoal, SingleGoal(GoalOlympiad)))
	assert.Equal(t, LevelInputNone, LevelInputFor(LevelByGoal, MultipleGoals(GoalProjects)))
	assert.Equal(t, LevelInputSelfAssessment, LevelInputFor(LevelSelfAssessment, SingleGoal(GoalEGE)))
}
