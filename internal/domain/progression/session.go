package progression

import (
	"time"

	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDY SESSION
// ══════════════════════════════════════════════════════════════════════════════

// StudySessionOutcome - то, что движку нужно знать о сессии.
type StudySessionOutcome struct {
	// TargetDuration - целевая длительность в минутах (> 0).
	TargetDuration int

	// ActualDuration - фактическая длительность в минутах; nil, пока сессия идёт.
	ActualDuration *int

	// Completed - признак завершения.
	Completed bool
}

// IsCompleted возвращает true, если сессия завершена и длительность известна.
func (o StudySessionOutcome) IsCompleted() bool {
	return o.Completed && o.ActualDuration != nil
}

// GoalReached возвращает true, если фактическая длительность не меньше цели.
func (o StudySessionOutcome) GoalReached() bool {
	return o.ActualDuration != nil && *o.ActualDuration >= o.TargetDuration
}

// StudySession - учебная сессия пользователя.
type StudySession struct {
	// ID - идентификатор сессии (UUID).
	ID string `json:"id"`

	// UserID - владелец сессии.
	UserID string `json:"user_id"`

	// Title - название сессии.
	Title string `json:"title"`

	// TargetDuration - целевая длительность в минутах.
	TargetDuration int `json:"duration"`

	// ActualDuration - фактическая длительность в минутах.
	ActualDuration *int `json:"actual_duration,omitempty"`

	// Completed - сессия завершена.
	Completed bool `json:"completed"`

	// FocusRating - самооценка концентрации 1-5 (необязательно).
	FocusRating *int `json:"focus_rating,omitempty"`

	// StartTime - начало сессии.
	StartTime time.Time `json:"start_time"`

	// EndTime - конец сессии.
	EndTime *time.Time `json:"end_time,omitempty"`

	// XPEarned - начисленный XP; nil, пока награда не выдана.
	XPEarned *int `json:"xp_earned,omitempty"`

	// RewardedAt - когда награда была выдана.
	RewardedAt *time.Time `json:"rewarded_at,omitempty"`

	// CreatedAt - время создания.
	CreatedAt time.Time `json:"created_at"`
}

// NewSessionParams - параметры для начала сессии.
type NewSessionParams struct {
	ID             string
	UserID         string
	Title          string
	TargetDuration int
	StartTime      time.Time
}

// NewStudySession создаёт незавершённую сессию.
func NewStudySession(params NewSessionParams) (*StudySession, error) {
	if _, err := shared.NewSessionID(params.ID); err != nil {
		return nil, err
	}
	if _, err := shared.NewUserID(params.UserID); err != nil {
		return nil, err
	}
	if params.TargetDuration <= 0 {
		return nil, shared.ErrInvalidDuration
	}

	return &StudySession{
		ID:             params.ID,
		UserID:         params.UserID,
		Title:          params.Title,
		TargetDuration: params.TargetDuration,
		StartTime:      params.StartTime,
		CreatedAt:      params.StartTime,
	}, nil
}

// Finish завершает сессию: фактическая длительность - целые минуты
// между началом и концом.
func (s *StudySession) Finish(end time.Time, focusRating *int) error {
	if s.Completed {
		return shared.ErrSessionAlreadyFinished
	}
	if !end.After(s.StartTime) {
		return shared.ErrInvalidSessionWindow
	}
	if focusRating != nil && (*focusRating < 1 || *focusRating > 5) {
		return shared.NewDomainError("session", "Finish", shared.ErrValueOutOfRange, "focus rating must be between 1 and 5")
	}

	minutes := int(end.Sub(s.StartTime) / time.Minute)
	s.ActualDuration = &minutes
	s.EndTime = &end
	s.FocusRating = focusRating
	s.Completed = true
	return nil
}

// Outcome возвращает данные сессии для движка.
func (s *StudySession) Outcome() StudySessionOutcome {
	return StudySessionOutcome{
		TargetDuration: s.TargetDuration,
		ActualDuration: s.ActualDuration,
		Completed:      s.Completed,
	}
}

// IsRewarded возвращает true, если XP за сессию уже начислен.
func (s *StudySession) IsRewarded() bool {
	return s.RewardedAt != nil
}

// MarkRewarded фиксирует начисленный XP.
func (s *StudySession) MarkRewarded(xp int, at time.Time) {
	s.XPEarned = &xp
	s.RewardedAt = &at
}
