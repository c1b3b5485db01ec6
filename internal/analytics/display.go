package analytics

import (
	"strconv"
	"strings"
)

// ApplicationRow is an application formatted for the admin table.
type ApplicationRow struct {
	ID       string `json:"id" yaml:"id"`
	Date     string `json:"date" yaml:"date"`
	Grade    string `json:"grade" yaml:"grade"`
	Goals    string `json:"goals" yaml:"goals"`
	Subjects string `json:"subjects" yaml:"subjects"`
	Level    string `json:"level" yaml:"level"`
	Email    string `json:"email" yaml:"email"`
	Telegram string `json:"telegram" yaml:"telegram"`
	Source   string `json:"source" yaml:"source"`
}

// DateLayout is how submission times are shown.
const DateLayout = "2006-01-02 15:04"

// DisplayRow joins list fields and renders the level column.
func DisplayRow(a Application) ApplicationRow {
	return ApplicationRow{
		ID:       a.ID,
		Date:     a.SubmittedAt.Format(DateLayout),
		Grade:    a.Grade,
		Goals:    strings.Join(a.Goals, ", "),
		Subjects: strings.Join(a.Subjects, ", "),
		Level:    LevelLabel(a.ApplicationData),
		Email:    a.Email,
		Telegram: a.Telegram,
		Source:   a.UTM.SourceOr(DirectSource),
	}
}

// LevelLabel renders the exam score with its noun, else the olympiad tier, else
// the self-assessment as N/10.
func LevelLabel(d ApplicationData) string {
	if score, err := strconv.Atoi(strings.TrimSpace(d.ExamScore)); err == nil {
		return strconv.Itoa(score) + " " + pointsNoun(score)
	}
	if d.Level != "" {
		return d.Level
	}
	if d.SelfAssessment > 0 {
		return strconv.Itoa(d.SelfAssessment) + "/10"
	}
	return ""
}

// pointsNoun picks the Russian plural form of "балл" for n.
func pointsNoun(n int) string {
	if n < 0 {
		n = -n
	}
	switch mod100 := n % 100; {
	case mod100 >= 11 && mod100 <= 14:
		return "баллов"
	case n%10 == 1:
		return "балл"
	case n%10 >= 2 && n%10 <= 4:
		return "балла"
	default:
		return "баллов"
	}
}
