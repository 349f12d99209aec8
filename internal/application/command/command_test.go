package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/domain/shared"
	"github.com/studypet/studypet-hub/internal/infrastructure/persistence/memory"
	"github.com/studypet/studypet-hub/pkg/timeutil"
)

const testUserID = "6f1c2a9e-8b7d-4c3e-9a10-2b4d5e6f7a8b"

var day0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.EventType
}

func (p *recordingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.EventType())
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.EventType(nil), p.events...)
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []string
	stored      []int64
}

func (c *recordingCache) Get(context.Context, string) (*progression.UserProgression, error) {
	return nil, nil
}

func (c *recordingCache) Set(_ context.Context, p *progression.UserProgression) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = append(c.stored, p.Version)
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
	return nil
}

type fixture struct {
	store     *memory.Store
	clock     *timeutil.FixedClock
	publisher *recordingPublisher
	cache     *recordingCache
	deps      Dependencies
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	engine, err := progression.NewEngine(progression.ProportionalEconomy(), time.UTC)
	require.NoError(t, err)

	f := &fixture{
		store:     memory.NewStore(),
		clock:     timeutil.NewFixedClock(day0),
		publisher: &recordingPublisher{},
		cache:     &recordingCache{},
	}
	f.deps = Dependencies{
		Store:     f.store,
		Sessions:  f.store,
		Engine:    engine,
		Cache:     f.cache,
		Publisher: f.publisher,
		Clock:     f.clock,
	}
	return f
}

func (f *fixture) createUser(t *testing.T) *progression.UserProgression {
	t.Helper()

	p, err := NewCreateProgressionHandler(f.deps).Handle(context.Background(), CreateProgressionCommand{
		UserID:  testUserID,
		PetName: "Mochi",
		PetType: "cat",
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) startSession(t *testing.T, target int) *progression.StudySession {
	t.Helper()

	s, err := NewStartSessionHandler(f.deps).Handle(context.Background(), StartSessionCommand{
		UserID:         testUserID,
		Title:          "Linear algebra",
		TargetDuration: target,
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) finish(t *testing.T, s *progression.StudySession, after time.Duration) *FinishSessionResult {
	t.Helper()

	res, err := NewFinishSessionHandler(f.deps, nil).Handle(context.Background(), FinishSessionCommand{
		UserID:    testUserID,
		SessionID: s.ID,
		EndTime:   s.StartTime.Add(after),
	})
	require.NoError(t, err)
	return res
}

func TestCreateProgression(t *testing.T) {
	f := newFixture(t)
	h := NewCreateProgressionHandler(f.deps)

	p := f.createUser(t)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 100, p.PetEnergy)
	assert.Equal(t, progression.MoodHappy, p.PetMood)
	assert.Equal(t, []shared.EventType{shared.EventProgressionCreated}, f.publisher.types())

	_, err := h.Handle(context.Background(), CreateProgressionCommand{UserID: testUserID, PetName: "Mochi", PetType: "cat"})
	assert.ErrorIs(t, err, shared.ErrProgressionExists)

	_, err = h.Handle(context.Background(), CreateProgressionCommand{PetName: "Mo", PetType: "cat"})
	assert.ErrorIs(t, err, shared.ErrInvalidPetName)

	_, err = h.Handle(context.Background(), CreateProgressionCommand{PetName: "Mochi", PetType: "parrot"})
	assert.ErrorIs(t, err, shared.ErrInvalidPetType)

	generated, err := h.Handle(context.Background(), CreateProgressionCommand{PetName: "Rex", PetType: "dog"})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.UserID)
}

func TestStartSession_RequiresProgression(t *testing.T) {
	f := newFixture(t)

	_, err := NewStartSessionHandler(f.deps).Handle(context.Background(), StartSessionCommand{
		UserID: testUserID, TargetDuration: 30,
	})
	assert.ErrorIs(t, err, shared.ErrProgressionNotFound)

	f.createUser(t)
	_, err = NewStartSessionHandler(f.deps).Handle(context.Background(), StartSessionCommand{
		UserID: testUserID, TargetDuration: 0,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidDuration)
}

func TestFinishSession_RewardsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t)
	s := f.startSession(t, 30)

	res := f.finish(t, s, 45*time.Minute+40*time.Second)

	require.True(t, res.Reward.Session.Completed)
	assert.Equal(t, 45, *res.Session.ActualDuration)
	assert.Equal(t, 45, res.Reward.Session.Reward.BaseXP)
	assert.Equal(t, 30, res.Reward.Session.Reward.BonusXP)
	assert.Equal(t, 75, res.Reward.Session.Reward.XP)
	assert.Equal(t, 1, res.Reward.Session.Streak.Streak)
	require.NotNil(t, res.Session.XPEarned)
	assert.Equal(t, 75, *res.Session.XPEarned)

	p, err := f.store.Load(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 75, p.ExperiencePoints)
	assert.Equal(t, 45, p.TotalStudyTime)
	assert.Equal(t, 1, p.StreakDays)

	stored, err := f.store.GetSession(ctx, testUserID, s.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.XPEarned)
	assert.Equal(t, 75, *stored.XPEarned)

	_, err = NewCompleteSessionHandler(f.deps).Handle(ctx, CompleteSessionCommand{UserID: testUserID, SessionID: s.ID})
	assert.ErrorIs(t, err, shared.ErrSessionAlreadyRewarded)

	_, err = NewFinishSessionHandler(f.deps, nil).Handle(ctx, FinishSessionCommand{UserID: testUserID, SessionID: s.ID})
	assert.ErrorIs(t, err, shared.ErrSessionAlreadyFinished)

	p, err = f.store.Load(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 75, p.ExperiencePoints)

	assert.Contains(t, f.publisher.types(), shared.EventSessionRewarded)
	assert.Contains(t, f.cache.invalidated, testUserID)
}

func TestFinishSession_LevelUp(t *testing.T) {
	f := newFixture(t)
	f.createUser(t)
	s := f.startSession(t, 60)

	res := f.finish(t, s, 2*time.Hour)

	assert.True(t, res.Reward.Session.LevelUp())
	assert.Equal(t, 240, res.Reward.Session.Reward.XP)
	assert.Equal(t, 3, res.Reward.Progression.Level)
	assert.Contains(t, f.publisher.types(), shared.EventLevelUp)
}

func TestCompleteSession_NotFinished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t)
	s := f.startSession(t, 30)

	res, err := NewCompleteSessionHandler(f.deps).Handle(ctx, CompleteSessionCommand{UserID: testUserID, SessionID: s.ID})
	require.NoError(t, err)
	assert.False(t, res.Session.Completed)
	assert.Equal(t, progression.MessageSessionNotCompleted, res.Session.Message)

	p, err := f.store.Load(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.ExperiencePoints)
	assert.Equal(t, int64(1), p.Version)

	_, err = NewCompleteSessionHandler(f.deps).Handle(ctx, CompleteSessionCommand{UserID: testUserID, SessionID: "missing"})
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)
}

func TestCompleteSession_AppliesDecayFirst(t *testing.T) {
	f := newFixture(t)
	f.createUser(t)

	f.clock.Advance(3 * 24 * time.Hour)
	s := f.startSession(t, 30)
	res := f.finish(t, s, time.Hour)

	assert.Equal(t, 3, res.Reward.Decay.DaysPassed)
	assert.Equal(t, 60, res.Reward.Decay.EnergyLost)
	assert.Equal(t, 45, res.Reward.Progression.PetEnergy)
	assert.Equal(t, progression.MoodNeutral, res.Reward.Progression.PetMood)

	types := f.publisher.types()
	assert.Contains(t, types, shared.EventEnergyDecayed)
	assert.Contains(t, types, shared.EventSessionRewarded)
}

func TestCompleteSession_ConcurrentCallsAwardOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t)
	s := f.startSession(t, 30)

	end := s.StartTime.Add(30 * time.Minute)
	require.NoError(t, s.Finish(end, nil))
	require.NoError(t, f.store.FinishSession(ctx, s))

	h := NewCompleteSessionHandler(f.deps)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rewarded  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Handle(ctx, CompleteSessionCommand{UserID: testUserID, SessionID: s.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, shared.ErrSessionAlreadyRewarded):
				rewarded++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, rewarded)

	p, err := f.store.Load(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 30, p.ExperiencePoints)
}

func TestAdjustPet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t)
	h := NewAdjustPetHandler(f.deps)

	energy := 30
	res, err := h.Handle(ctx, AdjustPetCommand{UserID: testUserID, Energy: &energy})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 30, res.Progression.PetEnergy)
	assert.Equal(t, progression.MoodSad, res.Progression.PetMood)

	happy := "Happy"
	low := -15
	res, err = h.Handle(ctx, AdjustPetCommand{UserID: testUserID, Mood: &happy, Energy: &low})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Progression.PetEnergy)
	assert.Equal(t, progression.MoodHappy, res.Progression.PetMood)

	bogus := "ecstatic"
	high := 95
	res, err = h.Handle(ctx, AdjustPetCommand{UserID: testUserID, Mood: &bogus, Energy: &high})
	require.NoError(t, err)
	assert.Equal(t, progression.MoodHappy, res.Progression.PetMood)
	assert.Equal(t, 95, res.Progression.PetEnergy)

	_, err = h.Handle(ctx, AdjustPetCommand{UserID: testUserID, Mood: &bogus})
	assert.ErrorIs(t, err, shared.ErrInvalidMood)

	_, err = h.Handle(ctx, AdjustPetCommand{UserID: testUserID})
	assert.ErrorIs(t, err, shared.ErrInvalidMood)

	p, err := f.store.Load(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 95, p.PetEnergy)
}

func TestApplyDecay_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t)
	h := NewApplyDecayHandler(f.deps)

	res, err := h.Handle(ctx, ApplyDecayCommand{UserID: testUserID})
	require.NoError(t, err)
	assert.False(t, res.Decay.Applied())

	f.clock.Advance(2 * 24 * time.Hour)
	res, err = h.Handle(ctx, ApplyDecayCommand{UserID: testUserID})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Decay.DaysPassed)
	assert.Equal(t, 60, res.Progression.PetEnergy)

	f.clock.Advance(time.Hour)
	res, err = h.Handle(ctx, ApplyDecayCommand{UserID: testUserID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Decay.DaysPassed)
	assert.Equal(t, 60, res.Progression.PetEnergy)

	decayed := 0
	for _, typ := range f.publisher.types() {
		if typ == shared.EventEnergyDecayed {
			decayed++
		}
	}
	assert.Equal(t, 1, decayed)

	_, err = h.Handle(ctx, ApplyDecayCommand{UserID: "unknown"})
	assert.ErrorIs(t, err, shared.ErrProgressionNotFound)
}

func TestApplyDecay_BreaksStreak(t *testing.T) {
	f := newFixture(t)
	f.createUser(t)
	f.finish(t, f.startSession(t, 30), 30*time.Minute)

	f.clock.Advance(3 * 24 * time.Hour)
	res, err := NewApplyDecayHandler(f.deps).Handle(context.Background(), ApplyDecayCommand{UserID: testUserID})
	require.NoError(t, err)
	assert.True(t, res.Decay.StreakBroken)
	assert.Equal(t, 0, res.Progression.StreakDays)
	assert.Contains(t, f.publisher.types(), shared.EventStreakBroken)
}

// conflictingStore fails the first Save with a version conflict.
type conflictingStore struct {
	*memory.Store
	mu       sync.Mutex
	failures int
	saves    int
}

func (s *conflictingStore) Save(ctx context.Context, p *progression.UserProgression) error {
	s.mu.Lock()
	s.saves++
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()

	if fail {
		return shared.ErrVersionConflict
	}
	return s.Store.Save(ctx, p)
}

func TestUpdate_RetriesVersionConflict(t *testing.T) {
	f := newFixture(t)
	f.createUser(t)

	store := &conflictingStore{Store: f.store, failures: 2}
	deps := f.deps
	deps.Store = store

	f.clock.Advance(24 * time.Hour)
	res, err := NewApplyDecayHandler(deps).Handle(context.Background(), ApplyDecayCommand{UserID: testUserID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Decay.DaysPassed)
	assert.Equal(t, 80, res.Progression.PetEnergy)
	assert.Equal(t, 3, store.saves)
}

// trackingLocker counts acquisitions and reports whether the lock is held.
type trackingLocker struct {
	inner *KeyedMutex
	mu    sync.Mutex
	held  bool
	locks int
	err   error
}

func (l *trackingLocker) Lock(ctx context.Context, userID string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	release, err := l.inner.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.held = true
	l.locks++
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.held = false
		l.mu.Unlock()
		release()
	}, nil
}

func (l *trackingLocker) isHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

type lockCheckingCache struct {
	recordingCache
	locker       *trackingLocker
	setUnderLock []bool
}

func (c *lockCheckingCache) Set(ctx context.Context, p *progression.UserProgression) error {
	c.setUnderLock = append(c.setUnderLock, c.locker.isHeld())
	return c.recordingCache.Set(ctx, p)
}

func TestUpdate_UsesInjectedLocker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t)

	locker := &trackingLocker{inner: NewKeyedMutex()}
	deps := f.deps
	deps.Locker = locker

	f.clock.Advance(24 * time.Hour)
	_, err := NewApplyDecayHandler(deps).Handle(ctx, ApplyDecayCommand{UserID: testUserID})
	require.NoError(t, err)
	assert.Equal(t, 1, locker.locks)
	assert.False(t, locker.isHeld())

	locker.err = shared.ErrLockNotAcquired
	f.clock.Advance(24 * time.Hour)
	_, err = NewApplyDecayHandler(deps).Handle(ctx, ApplyDecayCommand{UserID: testUserID})
	assert.ErrorIs(t, err, shared.ErrLockNotAcquired)

	stored, err := f.store.Load(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 80, stored.PetEnergy)
}

func TestApplyDecay_FillCacheStoresSnapshotUnderLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t)

	locker := &trackingLocker{inner: NewKeyedMutex()}
	cache := &lockCheckingCache{locker: locker}
	deps := f.deps
	deps.Locker = locker
	deps.Cache = cache

	f.clock.Advance(24 * time.Hour)
	res, err := NewApplyDecayHandler(deps).Handle(ctx, ApplyDecayCommand{UserID: testUserID, FillCache: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Decay.DaysPassed)

	assert.Equal(t, []bool{true}, cache.setUnderLock)
	assert.Equal(t, []int64{res.Progression.Version}, cache.stored)
	assert.Empty(t, cache.invalidated)

	// Without FillCache the snapshot is dropped instead.
	f.clock.Advance(24 * time.Hour)
	_, err = NewApplyDecayHandler(deps).Handle(ctx, ApplyDecayCommand{UserID: testUserID})
	require.NoError(t, err)
	assert.Len(t, cache.stored, 1)
	assert.Equal(t, []string{testUserID}, cache.invalidated)
}

func TestDeleteProgression(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t)
	h := NewDeleteProgressionHandler(f.deps)

	require.NoError(t, h.Handle(ctx, DeleteProgressionCommand{UserID: testUserID}))
	assert.ErrorIs(t, h.Handle(ctx, DeleteProgressionCommand{UserID: testUserID}), shared.ErrProgressionNotFound)

	assert.Contains(t, f.publisher.types(), shared.EventProgressionDeleted)
	assert.Contains(t, f.cache.invalidated, testUserID)
}

func TestKeyedMutex(t *testing.T) {
	k := NewKeyedMutex()

	release, err := k.Lock(context.Background(), "a")
	require.NoError(t, err)

	other, err := k.Lock(context.Background(), "b")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = k.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Equal(t, 0, k.Len())

	again, err := k.Lock(context.Background(), "a")
	require.NoError(t, err)
	again()
}
