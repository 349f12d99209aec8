package progression

// clampEnergy ограничивает энергию диапазоном [MinEnergy, MaxEnergy].
func clampEnergy(energy int) int {
	if energy < MinEnergy {
		return MinEnergy
	}
	if energy > MaxEnergy {
		return MaxEnergy
	}
	return energy
}

// GainFromSession возвращает прирост энергии за сессию заданной длительности.
func (e Economy) GainFromSession(actualMinutes int) int {
	if actualMinutes < 0 {
		actualMinutes = 0
	}
	switch e.GainMode {
	case GainFlat:
		return e.FlatEnergyPerSession
	default:
		return actualMinutes * e.EnergyPerHour / 60
	}
}

// VitalityChange - итог изменения энергии питомца.
type VitalityChange struct {
	Gained int
	Energy int
	Mood   Mood
}

// applySessionGain добавляет энергию за сессию и пересчитывает настроение.
func (e Economy) applySessionGain(p *UserProgression, actualMinutes int) VitalityChange {
	gain := e.GainFromSession(actualMinutes)
	p.PetEnergy = clampEnergy(p.PetEnergy + gain)
	p.PetMood = e.ResolveMood(p.PetEnergy)
	return VitalityChange{Gained: gain, Energy: p.PetEnergy, Mood: p.PetMood}
}

// DecayOneDay снимает дневную потерю энергии и пересчитывает настроение.
func (e Economy) DecayOneDay(p *UserProgression) VitalityChange {
	return e.DecayDays(p, 1)
}

// DecayDays снимает потерю за days дней одним шагом. Возвращаемое Gained
// отрицательно и равно номинальной потере, даже если энергия упёрлась в ноль.
func (e Economy) DecayDays(p *UserProgression, days int) VitalityChange {
	if days < 0 {
		days = 0
	}
	loss := days * e.DailyEnergyLoss
	p.PetEnergy = clampEnergy(p.PetEnergy - loss)
	p.PetMood = e.ResolveMood(p.PetEnergy)
	return VitalityChange{Gained: -loss, Energy: p.PetEnergy, Mood: p.PetMood}
}

// ManualAdjust вручную задаёт энергию и/или настроение.
//
// Энергия ограничивается [0, 100]. Допустимое явное настроение имеет приоритет.
// Если передана только энергия (или настроение недопустимо), настроение
// выводится из новой энергии. Если передано только недопустимое настроение,
// запись не меняется. Возвращает true, если запись изменилась.
func (e Economy) ManualAdjust(p *UserProgression, mood *Mood, energy *int) bool {
	changed := false

	if energy != nil {
		p.PetEnergy = clampEnergy(*energy)
		p.PetMood = e.ResolveMood(p.PetEnergy)
		changed = true
	}

	if mood != nil && mood.IsValid() {
		p.PetMood = *mood
		changed = true
	}

	return changed
}
