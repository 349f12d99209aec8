package progression

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PET
// ══════════════════════════════════════════════════════════════════════════════

// PetType - вид питомца.
type PetType string

const (
	PetCat PetType = "cat"
	PetDog PetType = "dog"
)

// IsValid проверяет вид питомца.
func (t PetType) IsValid() bool {
	return t == PetCat || t == PetDog
}

// ParsePetType нормализует строку вида питомца.
func ParsePetType(s string) (PetType, error) {
	t := PetType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.ErrInvalidPetType
	}
	return t, nil
}

const (
	petNameMinLen = 3
	petNameMaxLen = 30
)

// ValidatePetName проверяет длину имени питомца.
func ValidatePetName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < petNameMinLen || n > petNameMaxLen {
		return shared.ErrInvalidPetName
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER PROGRESSION
// ══════════════════════════════════════════════════════════════════════════════

// UserProgression - игровое состояние одного пользователя.
type UserProgression struct {
	// UserID - идентификатор пользователя (UUID).
	UserID string `json:"user_id"`

	// ExperiencePoints - суммарный XP, только растёт.
	ExperiencePoints int `json:"experience_points"`

	// Level - уровень, floor(XP / XPPerLevel) + 1, никогда не понижается.
	Level int `json:"level"`

	// TotalStudyTime - суммарное время учёбы в минутах.
	TotalStudyTime int `json:"total_study_time"`

	// PetName - имя питомца.
	PetName string `json:"pet_name"`

	// PetType - вид питомца.
	PetType PetType `json:"pet_type"`

	// PetEnergy - энергия питомца в диапазоне [0, 100].
	PetEnergy int `json:"pet_energy"`

	// PetMood - настроение; совпадает с выводом из энергии,
	// кроме случая ручной установки.
	PetMood Mood `json:"pet_mood"`

	// StreakDays - текущая серия дней с учёбой.
	StreakDays int `json:"streak_days"`

	// LastStudyDate - дата последней завершённой сессии (nil - ещё не было).
	LastStudyDate *Date `json:"last_study_date,omitempty"`

	// LastCheckedAt - момент последнего применения затухания.
	LastCheckedAt time.Time `json:"last_checked_at"`

	// Version - токен оптимистической блокировки. Увеличивается хранилищем.
	Version int64 `json:"version"`

	// CreatedAt - время создания записи.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt - время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProgressionParams - параметры для создания записи прогресса.
type NewProgressionParams struct {
	UserID  string
	PetName string
	PetType string
	Now     time.Time
}

// NewUserProgression создаёт запись с начальными значениями:
// уровень 1, 0 XP, энергия 100, настроение happy, серия 0.
func NewUserProgression(params NewProgressionParams) (*UserProgression, error) {
	userID, err := shared.NewUserID(params.UserID)
	if err != nil {
		return nil, err
	}
	if err := ValidatePetName(params.PetName); err != nil {
		return nil, err
	}
	petType, err := ParsePetType(params.PetType)
	if err != nil {
		return nil, err
	}

	return &UserProgression{
		UserID:           userID.String(),
		ExperiencePoints: 0,
		Level:            1,
		TotalStudyTime:   0,
		PetName:          strings.TrimSpace(params.PetName),
		PetType:          petType,
		PetEnergy:        MaxEnergy,
		PetMood:          MoodHappy,
		StreakDays:       0,
		LastCheckedAt:    params.Now,
		CreatedAt:        params.Now,
		UpdatedAt:        params.Now,
	}, nil
}

// Clone возвращает независимую копию записи.
func (p *UserProgression) Clone() *UserProgression {
	c := *p
	if p.LastStudyDate != nil {
		d := *p.LastStudyDate
		c.LastStudyDate = &d
	}
	return &c
}

func (p *UserProgression) setLastStudyDate(d Date) {
	p.LastStudyDate = &d
}
