package progression

import "github.com/studypet/studypet-hub/internal/domain/shared"

// SessionReward - разбивка XP за одну завершённую сессию.
type SessionReward struct {
	BaseXP      int  `json:"base_xp"`
	BonusXP     int  `json:"bonus_xp"`
	XP          int  `json:"xp"`
	GoalReached bool `json:"goal_reached"`
}

// ComputeSessionReward считает XP за сессию. Функция чистая:
// запись прогресса не изменяется.
//
//	base  = actual * XPPerMinute
//	bonus = (actual - target) * GoalBonusMultiplier, если цель достигнута
func (e Economy) ComputeSessionReward(s StudySessionOutcome) (SessionReward, error) {
	if !s.IsCompleted() {
		return SessionReward{}, shared.ErrSessionNotCompleted
	}

	actual := *s.ActualDuration
	goal := s.GoalReached()

	reward := SessionReward{
		BaseXP:      actual * e.XPPerMinute,
		GoalReached: goal,
	}
	if goal {
		reward.BonusXP = (actual - s.TargetDuration) * e.GoalBonusMultiplier
	}
	reward.XP = reward.BaseXP + reward.BonusXP

	return reward, nil
}
