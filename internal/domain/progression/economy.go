package progression

import (
	"fmt"
	"strings"

	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ECONOMY CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

const (
	// MinEnergy - нижняя граница энергии питомца.
	MinEnergy = 0
	// MaxEnergy - верхняя граница энергии питомца.
	MaxEnergy = 100
)

// EnergyGainMode определяет, как сессия восстанавливает энергию.
type EnergyGainMode string

const (
	// GainProportional - энергия пропорциональна длительности сессии.
	GainProportional EnergyGainMode = "proportional"
	// GainFlat - фиксированная энергия за каждую завершённую сессию.
	GainFlat EnergyGainMode = "flat"
)

// IsValid проверяет режим начисления энергии.
func (m EnergyGainMode) IsValid() bool {
	return m == GainProportional || m == GainFlat
}

// Названия пресетов экономики.
const (
	PresetProportional = "proportional"
	PresetFlat         = "flat"
)

// MoodBands задаёт пороги настроения питомца.
// happy: energy >= HappyMin; neutral: NeutralMin <= energy < HappyMin; sad: ниже.
type MoodBands struct {
	HappyMin   int
	NeutralMin int
}

// Economy - полная конфигурация игрового баланса.
// Engine не содержит захардкоженных чисел, всё берётся отсюда.
type Economy struct {
	// XPPerMinute - базовый XP за минуту фактической учёбы.
	XPPerMinute int

	// GoalBonusMultiplier - множитель XP за каждую минуту сверх цели.
	GoalBonusMultiplier int

	// XPPerLevel - сколько XP нужно на один уровень.
	XPPerLevel int

	// GainMode - режим восстановления энергии.
	GainMode EnergyGainMode

	// EnergyPerHour - энергия за час учёбы (GainProportional).
	EnergyPerHour int

	// FlatEnergyPerSession - энергия за сессию (GainFlat).
	FlatEnergyPerSession int

	// DailyEnergyLoss - потеря энергии за каждый календарный день.
	DailyEnergyLoss int

	// Bands - пороги настроения.
	Bands MoodBands
}

// ProportionalEconomy возвращает баланс по умолчанию:
// +5 энергии за час, -20 в день, настроение 80/40.
func ProportionalEconomy() Economy {
	return Economy{
		XPPerMinute:          1,
		GoalBonusMultiplier:  2,
		XPPerLevel:           100,
		GainMode:             GainProportional,
		EnergyPerHour:        5,
		FlatEnergyPerSession: 10,
		DailyEnergyLoss:      20,
		Bands:                MoodBands{HappyMin: 80, NeutralMin: 40},
	}
}

// FlatEconomy возвращает альтернативный баланс:
// +10 энергии за сессию, -5 в день, настроение 70/30.
func FlatEconomy() Economy {
	return Economy{
		XPPerMinute:          1,
		GoalBonusMultiplier:  2,
		XPPerLevel:           100,
		GainMode:             GainFlat,
		EnergyPerHour:        5,
		FlatEnergyPerSession: 10,
		DailyEnergyLoss:      5,
		Bands:                MoodBands{HappyMin: 70, NeutralMin: 30},
	}
}

// EconomyPreset возвращает пресет по имени.
func EconomyPreset(name string) (Economy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PresetProportional:
		return ProportionalEconomy(), nil
	case PresetFlat:
		return FlatEconomy(), nil
	default:
		return Economy{}, shared.WrapError("progression", "EconomyPreset", shared.ErrInvalidInput,
			"unknown economy preset", fmt.Errorf("%q", name))
	}
}

// Validate проверяет согласованность конфигурации.
func (e Economy) Validate() error {
	var problems []string

	if e.XPPerMinute < 0 {
		problems = append(problems, "xp per minute must be non-negative")
	}
	if e.GoalBonusMultiplier < 0 {
		problems = append(problems, "goal bonus multiplier must be non-negative")
	}
	if e.XPPerLevel <= 0 {
		problems = append(problems, "xp per level must be positive")
	}
	if !e.GainMode.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown energy gain mode %q", e.GainMode))
	}
	if e.EnergyPerHour < 0 || e.FlatEnergyPerSession < 0 {
		problems = append(problems, "energy gain must be non-negative")
	}
	if e.DailyEnergyLoss < 0 {
		problems = append(problems, "daily energy loss must be non-negative")
	}
	if e.Bands.NeutralMin <= MinEnergy || e.Bands.NeutralMin > e.Bands.HappyMin || e.Bands.HappyMin > MaxEnergy {
		problems = append(problems, "mood bands must satisfy 0 < neutral <= happy <= 100")
	}

	if len(problems) > 0 {
		return shared.WrapError("progression", "Validate", shared.ErrValidation,
			"invalid economy configuration", fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}
