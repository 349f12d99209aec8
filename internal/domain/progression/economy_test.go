package progression

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMood_Presets(t *testing.T) {
	tests := []struct {
		name    string
		economy Economy
		energy  int
		want    Mood
	}{
		{"proportional top", ProportionalEconomy(), 100, MoodHappy},
		{"proportional happy edge", ProportionalEconomy(), 80, MoodHappy},
		{"proportional neutral top", ProportionalEconomy(), 79, MoodNeutral},
		{"proportional neutral edge", ProportionalEconomy(), 40, MoodNeutral},
		{"proportional sad", ProportionalEconomy(), 39, MoodSad},
		{"proportional empty", ProportionalEconomy(), 0, MoodSad},
		{"flat happy edge", FlatEconomy(), 70, MoodHappy},
		{"flat neutral", FlatEconomy(), 69, MoodNeutral},
		{"flat neutral edge", FlatEconomy(), 30, MoodNeutral},
		{"flat sad", FlatEconomy(), 29, MoodSad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.economy.ResolveMood(tt.energy))
		})
	}
}

func TestGainFromSession(t *testing.T) {
	proportional := ProportionalEconomy()
	assert.Equal(t, 0, proportional.GainFromSession(11))
	assert.Equal(t, 1, proportional.GainFromSession(12))
	assert.Equal(t, 5, proportional.GainFromSession(60))
	assert.Equal(t, 7, proportional.GainFromSession(90))
	assert.Equal(t, 0, proportional.GainFromSession(-10))

	flat := FlatEconomy()
	assert.Equal(t, 10, flat.GainFromSession(1))
	assert.Equal(t, 10, flat.GainFromSession(240))
}

func TestDecayOneDay(t *testing.T) {
	p := &UserProgression{PetEnergy: 50}

	change := ProportionalEconomy().DecayOneDay(p)
	assert.Equal(t, 30, p.PetEnergy)
	assert.Equal(t, MoodSad, p.PetMood)
	assert.Equal(t, -20, change.Gained)

	p.PetEnergy = 3
	FlatEconomy().DecayOneDay(p)
	assert.Equal(t, 0, p.PetEnergy)
}

func TestLevelFor(t *testing.T) {
	e := ProportionalEconomy()
	assert.Equal(t, 1, e.LevelFor(0))
	assert.Equal(t, 1, e.LevelFor(99))
	assert.Equal(t, 2, e.LevelFor(100))
	assert.Equal(t, 11, e.LevelFor(1050))
}

func TestEnergyStaysInRange(t *testing.T) {
	type step struct {
		minutes int // >= 0: сессия, < 0: -minutes дней затухания
	}
	sequences := map[string][]step{
		"gain to cap":         {{600}, {600}, {6000}},
		"decay to floor":      {{-1}, {-3}, {-30}},
		"alternating":         {{120}, {-1}, {600}, {-2}, {30}, {-1}, {6000}, {-10}},
		"zero and huge":       {{0}, {-0}, {1 << 20}, {-(1 << 10)}},
		"recovery from floor": {{-50}, {12}, {12}, {-1}, {240}},
	}

	for _, economy := range []Economy{ProportionalEconomy(), FlatEconomy()} {
		for name, seq := range sequences {
			p := &UserProgression{PetEnergy: MaxEnergy}
			for i, st := range seq {
				if st.minutes >= 0 {
					economy.applySessionGain(p, st.minutes)
				} else {
					economy.DecayDays(p, -st.minutes)
				}
				require.GreaterOrEqual(t, p.PetEnergy, MinEnergy, "%s %s step %d", economy.GainMode, name, i)
				require.LessOrEqual(t, p.PetEnergy, MaxEnergy, "%s %s step %d", economy.GainMode, name, i)
				assert.Equal(t, economy.ResolveMood(p.PetEnergy), p.PetMood)
			}
		}
	}
}

func TestEnergyStaysInRange_RandomWalk(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))

	for _, economy := range []Economy{ProportionalEconomy(), FlatEconomy()} {
		p := &UserProgression{PetEnergy: rng.IntN(MaxEnergy + 1)}
		for i := 0; i < 2000; i++ {
			switch rng.IntN(3) {
			case 0:
				economy.applySessionGain(p, rng.IntN(600))
			case 1:
				economy.DecayOneDay(p)
			default:
				economy.DecayDays(p, rng.IntN(5))
			}
			require.True(t, p.PetEnergy >= MinEnergy && p.PetEnergy <= MaxEnergy,
				"%s step %d: energy %d", economy.GainMode, i, p.PetEnergy)
		}
	}

	for _, v := range []int{-1 << 30, -1, 0, 50, 100, 101, 1 << 30} {
		got := clampEnergy(v)
		assert.True(t, got >= MinEnergy && got <= MaxEnergy, "clampEnergy(%d) = %d", v, got)
	}
}

func TestLevelFor_Monotonic(t *testing.T) {
	custom := ProportionalEconomy()
	custom.XPPerLevel = 7

	for _, economy := range []Economy{ProportionalEconomy(), FlatEconomy(), custom} {
		prev := economy.LevelFor(-100)
		assert.Equal(t, 1, prev)
		for xp := -99; xp <= 20*economy.XPPerLevel; xp++ {
			level := economy.LevelFor(xp)
			require.GreaterOrEqual(t, level, prev, "xp %d", xp)
			require.LessOrEqual(t, level-prev, 1, "xp %d", xp)
			prev = level
		}
		assert.Equal(t, 21, prev)
	}
}

func TestComputeSessionReward(t *testing.T) {
	e := ProportionalEconomy()

	reward, err := e.ComputeSessionReward(completed(30, 30))
	require.NoError(t, err)
	assert.Equal(t, SessionReward{BaseXP: 30, BonusXP: 0, XP: 30, GoalReached: true}, reward)

	_, err = e.ComputeSessionReward(StudySessionOutcome{TargetDuration: 30, Completed: true})
	assert.Error(t, err)
}

func TestEconomyPreset(t *testing.T) {
	e, err := EconomyPreset("")
	require.NoError(t, err)
	assert.Equal(t, ProportionalEconomy(), e)

	e, err = EconomyPreset(" FLAT ")
	require.NoError(t, err)
	assert.Equal(t, GainFlat, e.GainMode)

	_, err = EconomyPreset("generous")
	assert.Error(t, err)
}

func TestEconomyValidate(t *testing.T) {
	assert.NoError(t, ProportionalEconomy().Validate())
	assert.NoError(t, FlatEconomy().Validate())

	bad := ProportionalEconomy()
	bad.Bands = MoodBands{HappyMin: 30, NeutralMin: 60}
	assert.Error(t, bad.Validate())

	bad = ProportionalEconomy()
	bad.GainMode = "random"
	assert.Error(t, bad.Validate())
}

func TestDate(t *testing.T) {
	d := NewDate(2024, 2, 28)
	assert.Equal(t, NewDate(2024, 2, 29), d.AddDays(1))
	assert.Equal(t, NewDate(2024, 3, 1), d.AddDays(2))
	assert.Equal(t, 2, NewDate(2024, 3, 1).DaysSince(d))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.Equal(t, "2024-02-28", d.String())

	parsed, err := ParseDate("2024-02-28")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	// Переход на летнее время не ломает подсчёт дней.
	ny, err := time.LoadLocation("America/New_York")
	if err == nil {
		before := DateOf(time.Date(2025, 3, 8, 12, 0, 0, 0, ny), ny)
		after := DateOf(time.Date(2025, 3, 10, 12, 0, 0, 0, ny), ny)
		assert.Equal(t, 2, after.DaysSince(before))
	}
}

func TestStudySessionFinish(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s, err := NewStudySession(NewSessionParams{
		ID:             "0b7e1f3c-5d2a-4e6b-8c9d-1a2b3c4d5e6f",
		UserID:         testUserID,
		Title:          "Linear algebra",
		TargetDuration: 45,
		StartTime:      start,
	})
	require.NoError(t, err)
	assert.False(t, s.Outcome().IsCompleted())

	assert.Error(t, s.Finish(start, nil))

	require.NoError(t, s.Finish(start.Add(50*time.Minute+40*time.Second), nil))
	require.NotNil(t, s.ActualDuration)
	assert.Equal(t, 50, *s.ActualDuration)
	assert.True(t, s.Outcome().IsCompleted())
	assert.True(t, s.Outcome().GoalReached())

	assert.Error(t, s.Finish(start.Add(time.Hour), nil))

	_, err = NewStudySession(NewSessionParams{
		ID:             "0b7e1f3c-5d2a-4e6b-8c9d-1a2b3c4d5e6f",
		UserID:         testUserID,
		TargetDuration: 0,
		StartTime:      start,
	})
	assert.Error(t, err)
}
