package progression

import "strings"

// Mood - настроение питомца.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
	MoodSad     Mood = "sad"
)

// IsValid проверяет, что настроение из допустимого набора.
func (m Mood) IsValid() bool {
	switch m {
	case MoodHappy, MoodNeutral, MoodSad:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление настроения.
func (m Mood) String() string {
	return string(m)
}

// ParseMood нормализует строку настроения. Второе значение false,
// если строка не является допустимым настроением.
func ParseMood(s string) (Mood, bool) {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	return m, m.IsValid()
}

// ResolveMood выводит настроение из уровня энергии по порогам экономики.
func (e Economy) ResolveMood(energy int) Mood {
	switch {
	case energy >= e.Bands.HappyMin:
		return MoodHappy
	case energy >= e.Bands.NeutralMin:
		return MoodNeutral
	default:
		return MoodSad
	}
}
