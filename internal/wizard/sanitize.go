package wizard

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	zeroWidthJoiner = '\u200d'
	keycapMark      = '\u20e3'
)

// SanitizeLabel strips presentation decorations (emoji, variation selectors, joiners)
// from an option label and collapses the remaining whitespace.
func SanitizeLabel(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == zeroWidthJoiner, r == keycapMark:
			continue
		case unicode.Is(unicode.Variation_Selector, r):
			continue
		case unicode.Is(unicode.So, r), unicode.Is(unicode.Sk, r):
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func sanitizeAll(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if c := SanitizeLabel(v); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Sanitize returns a copy of the answers with decorations stripped from every label
// and surrounding whitespace removed from free-text fields.
func Sanitize(a Answers) Answers {
	out := a.clone()
	out.Grade = SanitizeLabel(a.Grade)
	out.Subjects = sanitizeAll(a.Subjects)
	out.Level = SanitizeLabel(a.Level)
	out.ExamScore = strings.TrimSpace(a.ExamScore)
	out.Email = strings.TrimSpace(a.Email)
	out.Telegram = strings.TrimSpace(a.Telegram)
	if a.Goals.Mode() == GoalsSingle {
		out.Goals = SingleGoal(SanitizeLabel(a.Goals.single))
	} else {
		out.Goals = MultipleGoals(sanitizeAll(a.Goals.multi)...)
	}
	return out
}
