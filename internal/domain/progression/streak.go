package progression

// StreakUpdate - результат изменения серии.
type StreakUpdate struct {
	Streak int  `json:"streak"`
	Broken bool `json:"streak_broken"`
}

// RecordStudyDay применяет завершённую сессию к серии дней.
//
//	нет даты          -> серия 1
//	сегодня           -> без изменений
//	вчера             -> серия +1
//	два и более дней  -> серия 1, серия прервана
func RecordStudyDay(p *UserProgression, today Date) StreakUpdate {
	if p.LastStudyDate == nil {
		p.StreakDays = 1
		p.setLastStudyDate(today)
		return StreakUpdate{Streak: 1}
	}

	last := *p.LastStudyDate
	switch {
	case last.Equal(today):
		return StreakUpdate{Streak: p.StreakDays}
	case last.Equal(today.AddDays(-1)):
		p.StreakDays++
		p.setLastStudyDate(today)
		return StreakUpdate{Streak: p.StreakDays}
	case today.Before(last):
		// Дата из будущего (смена часового пояса или сдвиг часов):
		// серию не трогаем.
		return StreakUpdate{Streak: p.StreakDays}
	default:
		p.StreakDays = 1
		p.setLastStudyDate(today)
		return StreakUpdate{Streak: 1, Broken: true}
	}
}

// CheckAndResetStreak используется только ленивым затуханием:
// если последний день учёбы отсутствует или раньше вчерашнего и серия > 0,
// серия обнуляется. Дата последней учёбы не меняется.
func CheckAndResetStreak(p *UserProgression, today Date) StreakUpdate {
	lapsed := p.LastStudyDate == nil || p.LastStudyDate.Before(today.AddDays(-1))
	if lapsed && p.StreakDays > 0 {
		p.StreakDays = 0
		return StreakUpdate{Streak: 0, Broken: true}
	}
	return StreakUpdate{Streak: p.StreakDays}
}
