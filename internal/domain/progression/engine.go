package progression

import (
	"encoding/json"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESULTS
// ══════════════════════════════════════════════════════════════════════════════

// MessageSessionNotCompleted - сообщение для незавершённой сессии.
const MessageSessionNotCompleted = "Session not completed"

// SessionResult - итог обработки завершённой сессии.
// Для незавершённой сессии Completed == false и заполнено только Message.
type SessionResult struct {
	Completed bool
	Message   string

	Reward   SessionReward
	Minutes  int
	Level    LevelChange
	Vitality VitalityChange
	Streak   StreakUpdate
}

// LevelUp возвращает true, если сессия подняла уровень.
func (r SessionResult) LevelUp() bool {
	return r.Level.LevelUp
}

// MarshalJSON сериализует результат в одну из двух форм:
// {success:false, message} или плоский набор полей награды.
func (r SessionResult) MarshalJSON() ([]byte, error) {
	if !r.Completed {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}{Success: false, Message: r.Message})
	}

	out := struct {
		XP           int  `json:"xp"`
		BaseXP       int  `json:"base_xp"`
		BonusXP      int  `json:"bonus_xp"`
		GoalReached  bool `json:"goal_reached"`
		LevelUp      bool `json:"level_up"`
		NewLevel     *int `json:"new_level,omitempty"`
		Streak       int  `json:"streak"`
		StreakBroken bool `json:"streak_broken"`
	}{
		XP:           r.Reward.XP,
		BaseXP:       r.Reward.BaseXP,
		BonusXP:      r.Reward.BonusXP,
		GoalReached:  r.Reward.GoalReached,
		LevelUp:      r.Level.LevelUp,
		Streak:       r.Streak.Streak,
		StreakBroken: r.Streak.Broken,
	}
	if r.Level.LevelUp {
		lvl := r.Level.NewLevel
		out.NewLevel = &lvl
	}
	return json.Marshal(out)
}

// DecayResult - итог ленивого затухания.
type DecayResult struct {
	DaysPassed   int
	EnergyLost   int
	NewEnergy    int
	NewMood      Mood
	StreakBroken bool
}

// Applied возвращает true, если затухание что-то изменило.
func (r DecayResult) Applied() bool {
	return r.DaysPassed > 0
}

// MarshalJSON сериализует результат; без прошедших дней только days_passed.
func (r DecayResult) MarshalJSON() ([]byte, error) {
	if !r.Applied() {
		return json.Marshal(struct {
			DaysPassed int `json:"days_passed"`
		}{DaysPassed: 0})
	}
	return json.Marshal(struct {
		DaysPassed   int    `json:"days_passed"`
		EnergyLost   int    `json:"energy_lost"`
		NewEnergy    int    `json:"new_energy"`
		NewMood      string `json:"new_mood"`
		StreakBroken bool   `json:"streak_broken"`
	}{
		DaysPassed:   r.DaysPassed,
		EnergyLost:   r.EnergyLost,
		NewEnergy:    r.NewEnergy,
		NewMood:      r.NewMood.String(),
		StreakBroken: r.StreakBroken,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine координирует калькуляторы. Не хранит состояния и безопасен
// для конкурентного использования; сериализацию по пользователю
// обеспечивает вызывающий слой.
type Engine struct {
	economy Economy
	loc     *time.Location
}

// NewEngine создаёт движок. loc задаёт часовой пояс, в котором считаются
// календарные дни; nil означает UTC.
func NewEngine(economy Economy, loc *time.Location) (*Engine, error) {
	if err := economy.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{economy: economy, loc: loc}, nil
}

// Economy возвращает конфигурацию баланса.
func (e *Engine) Economy() Economy {
	return e.economy
}

// Location возвращает часовой пояс календарных дней.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Today возвращает календарную дату now в часовом поясе движка.
func (e *Engine) Today(now time.Time) Date {
	return DateOf(now, e.loc)
}

// ResolveMood выводит настроение из энергии.
func (e *Engine) ResolveMood(energy int) Mood {
	return e.economy.ResolveMood(energy)
}

// XPToNextLevel возвращает XP до следующего уровня.
func (e *Engine) XPToNextLevel(p *UserProgression) int {
	return e.economy.XPToNextLevel(p)
}

// OnSessionCompleted применяет завершённую сессию к записи:
// награда, суммарные XP и время, уровень, энергия и настроение, серия.
// Для незавершённой сессии запись не изменяется.
func (e *Engine) OnSessionCompleted(p *UserProgression, s StudySessionOutcome, now time.Time) SessionResult {
	reward, err := e.economy.ComputeSessionReward(s)
	if err != nil {
		return SessionResult{Completed: false, Message: MessageSessionNotCompleted}
	}

	minutes := *s.ActualDuration

	p.ExperiencePoints += reward.XP
	p.TotalStudyTime += minutes

	level := e.economy.applyLevel(p)
	vitality := e.economy.applySessionGain(p, minutes)
	streak := RecordStudyDay(p, e.Today(now))

	p.UpdatedAt = now

	return SessionResult{
		Completed: true,
		Reward:    reward,
		Minutes:   minutes,
		Level:     level,
		Vitality:  vitality,
		Streak:    streak,
	}
}

// ApplyPendingDecay списывает энергию за календарные дни, прошедшие
// с LastCheckedAt. В тот же день повторный вызов ничего не меняет.
// Момент now раньше LastCheckedAt считается нулём дней.
func (e *Engine) ApplyPendingDecay(p *UserProgression, now time.Time) DecayResult {
	today := e.Today(now)
	days := today.DaysSince(DateOf(p.LastCheckedAt, e.loc))
	if days <= 0 {
		return DecayResult{}
	}

	vitality := e.economy.DecayDays(p, days)
	p.LastCheckedAt = now
	streak := CheckAndResetStreak(p, today)
	p.UpdatedAt = now

	return DecayResult{
		DaysPassed:   days,
		EnergyLost:   -vitality.Gained,
		NewEnergy:    vitality.Energy,
		NewMood:      vitality.Mood,
		StreakBroken: streak.Broken,
	}
}

// PendingDays возвращает число дней, за которые затухание ещё не применено.
func (e *Engine) PendingDays(p *UserProgression, now time.Time) int {
	days := e.Today(now).DaysSince(DateOf(p.LastCheckedAt, e.loc))
	if days < 0 {
		return 0
	}
	return days
}

// ManualAdjust применяет ручную установку энергии и/или настроения.
func (e *Engine) ManualAdjust(p *UserProgression, mood *Mood, energy *int, now time.Time) bool {
	if !e.economy.ManualAdjust(p, mood, energy) {
		return false
	}
	p.UpdatedAt = now
	return true
}
