package wizard

import "slices"

// Grade and status vocabulary.
const (
	Grade9         = "9"
	Grade10        = "10"
	Grade11        = "11"
	GradeGraduate  = "Выпускник"
	GradeStudentLo = "Студент 1–2 курса"
	GradeStudentHi = "Студент 3–4 курса"
)

// Goal vocabulary.
const (
	GoalEGE        = "ЕГЭ"
	GoalOGE        = "ОГЭ"
	GoalOlympiad   = "Олимпиады"
	GoalProjects   = "Проекты"
	GoalAdmission  = "Поступление"
	GoalSession    = "Сессия"
	GoalCoursework = "Курсовая / диплом"
)

var grades = []string{Grade9, Grade10, Grade11, GradeGraduate, GradeStudentLo, GradeStudentHi}

var olympiadTiers = []string{
	"Школьный этап",
	"Муниципальный этап",
	"Региональный этап",
	"Заключительный этап",
	"Призёр / победитель",
}

var (
	goalsBasic  = []string{GoalOGE, GoalOlympiad, GoalProjects}
	goalsSenior = []string{GoalEGE, GoalOlympiad, GoalProjects}
	goalsGrad   = []string{GoalEGE, GoalAdmission}
	goalsUni    = []string{GoalSession, GoalCoursework, GoalOlympiad, GoalProjects}
)

var (
	subjectsBasic = []string{
		"📝 Русский язык",
		"📐 Математика",
		"💻 Информатика",
		"⚛️ Физика",
		"🧪 Химия",
		"🧬 Биология",
		"🏛️ История",
		"👥 Обществознание",
		"🇬🇧 Английский язык",
		"✨ Другое",
	}
	subjectsSenior = []string{
		"📝 Русский язык",
		"📐 Математика",
		"📊 Профильная математика",
		"💻 Информатика",
		"⚛️ Физика",
		"🧪 Химия",
		"🧬 Биология",
		"🏛️ История",
		"👥 Обществознание",
		"📚 Литература",
		"🇬🇧 Английский язык",
		"✨ Другое",
	}
	subjectsUni = []string{
		"📈 Высшая математика",
		"💻 Программирование",
		"⚛️ Физика",
		"💼 Экономика",
		"🌍 Иностранный язык",
		"✨ Другое",
	}
)

// Grades lists the first step's options.
func Grades() []string { return slices.Clone(grades) }

// OlympiadTiers lists the ordinal olympiad levels, lowest first.
func OlympiadTiers() []string { return slices.Clone(olympiadTiers) }

// GoalsFor returns the goals unlocked by a grade. Unknown grades unlock nothing.
func GoalsFor(grade string) []string {
	switch grade {
	case Grade9:
		return slices.Clone(goalsBasic)
	case Grade10, Grade11:
		return slices.Clone(goalsSenior)
	case GradeGraduate:
		return slices.Clone(goalsGrad)
	case GradeStudentLo, GradeStudentHi:
		return slices.Clone(goalsUni)
	default:
		return nil
	}
}

// SubjectsFor returns the subjects offered for a grade.
func SubjectsFor(grade string) []string {
	switch grade {
	case Grade9:
		return slices.Clone(subjectsBasic)
	case Grade10, Grade11, GradeGraduate:
		return slices.Clone(subjectsSenior)
	case GradeStudentLo, GradeStudentHi:
		return slices.Clone(subjectsUni)
	default:
		return nil
	}
}

func isExamGoal(g string) bool { return g == GoalEGE || g == GoalOGE }

func isOlympiadGoal(g string) bool { return g == GoalOlympiad }

// matchOption finds the catalog label whose sanitized form equals the sanitized input.
func matchOption(options []string, input string) (string, bool) {
	want := SanitizeLabel(input)
	if want == "" {
		return "", false
	}
	for _, opt := range options {
		if SanitizeLabel(opt) == want {
			return opt, true
		}
	}
	return "", false
}
