package progression

// LevelFor вычисляет уровень по суммарному XP: floor(xp / XPPerLevel) + 1.
func (e Economy) LevelFor(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/e.XPPerLevel + 1
}

// XPToNextLevel возвращает, сколько XP осталось до следующего уровня
// относительно сохранённого уровня записи.
func (e Economy) XPToNextLevel(p *UserProgression) int {
	return p.Level*e.XPPerLevel - p.ExperiencePoints
}

// LevelChange - результат пересчёта уровня после начисления XP.
type LevelChange struct {
	OldLevel int
	NewLevel int
	LevelUp  bool
}

// applyLevel поднимает уровень записи, если XP это позволяет.
// Уровень никогда не понижается.
func (e Economy) applyLevel(p *UserProgression) LevelChange {
	change := LevelChange{OldLevel: p.Level, NewLevel: p.Level}
	if computed := e.LevelFor(p.ExperiencePoints); computed > p.Level {
		p.Level = computed
		change.NewLevel = computed
		change.LevelUp = true
	}
	return change
}
