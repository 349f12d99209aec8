// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/domain/shared"
	"github.com/studypet/studypet-hub/pkg/retry"
	"github.com/studypet/studypet-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SHARED DEPENDENCIES
// Every progression write goes through Dependencies.update: the per-user lock
// is held for the whole load-apply-save cycle and version conflicts are retried.
// ══════════════════════════════════════════════════════════════════════════════

// UserLocker serializes writers of one user's progression.
type UserLocker interface {
	// Lock blocks until the user's lock is held and returns its release function.
	Lock(ctx context.Context, userID string) (func(), error)
}

// Dependencies are the collaborators shared by all command handlers.
type Dependencies struct {
	Store    progression.Store
	Sessions progression.SessionStore
	Engine   *progression.Engine

	// Locker defaults to a process-wide KeyedMutex.
	Locker UserLocker

	// Cache is optional. Writes invalidate the snapshot; the read path
	// refreshes it through ApplyDecayCommand.FillCache.
	Cache progression.Cache

	// Publisher is optional.
	Publisher shared.EventPublisher

	// Clock defaults to timeutil.SystemClock.
	Clock timeutil.Clock

	Logger *slog.Logger
}

var processLocker = NewKeyedMutex()

func (d Dependencies) withDefaults() Dependencies {
	if d.Locker == nil {
		d.Locker = processLocker
	}
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// Now returns the current time according to the configured clock.
func (d Dependencies) Now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock.Now()
}

// update loads the user's progression under the user lock and passes it to fn.
// fn must persist its own changes; when it returns ErrVersionConflict the
// whole cycle is repeated with a freshly loaded record. The cached snapshot
// is invalidated before the lock is released.
func (d Dependencies) update(ctx context.Context, userID string, fn func(ctx context.Context, p *progression.UserProgression, now time.Time) error) error {
	return d.updateCached(ctx, userID, false, fn)
}

// updateCached is update that, when fill is set, stores the saved record in
// the cache instead of dropping it. The snapshot is written while the lock is
// held, so a later writer always invalidates it afterwards.
func (d Dependencies) updateCached(ctx context.Context, userID string, fill bool, fn func(ctx context.Context, p *progression.UserProgression, now time.Time) error) error {
	release, err := d.Locker.Lock(ctx, userID)
	if err != nil {
		return fmt.Errorf("lock user %s: %w", userID, err)
	}
	defer release()

	retrier := retry.ConflictRetrier(func(err error) bool {
		return errors.Is(err, shared.ErrVersionConflict)
	})

	var (
		attempt int
		current *progression.UserProgression
	)
	err = retrier.Do(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			d.Logger.Debug("retrying after version conflict", "user_id", userID, "attempt", attempt)
		}

		p, err := d.Store.Load(ctx, userID)
		if err != nil {
			return err
		}
		current = p
		return fn(ctx, p, d.Now())
	})
	if err != nil {
		return err
	}

	if fill {
		d.fillCache(ctx, current)
		return nil
	}
	d.invalidate(ctx, userID)
	return nil
}

func (d Dependencies) fillCache(ctx context.Context, p *progression.UserProgression) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Set(ctx, p); err != nil {
		d.Logger.Warn("failed to cache progression", "user_id", p.UserID, "error", err)
		d.invalidate(ctx, p.UserID)
	}
}

func (d Dependencies) invalidate(ctx context.Context, userID string) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Invalidate(ctx, userID); err != nil {
		d.Logger.Warn("failed to invalidate progression cache", "user_id", userID, "error", err)
	}
}

func (d Dependencies) publish(events ...shared.Event) {
	if d.Publisher == nil {
		return
	}
	for _, event := range events {
		if err := d.Publisher.Publish(event); err != nil {
			d.Logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
		}
	}
}

// decayEvents converts an applied decay into domain events.
func decayEvents(userID string, res progression.DecayResult, now time.Time) []shared.Event {
	if !res.Applied() {
		return nil
	}

	events := []shared.Event{
		shared.NewEnergyDecayedEvent(userID, res.DaysPassed, res.EnergyLost, res.NewEnergy, string(res.NewMood), now),
	}
	if res.StreakBroken {
		events = append(events, shared.NewStreakBrokenEvent(userID, "decay", now))
	}
	return events
}

// applyDecay runs the lazy decay step and saves the record when it changed.
func (d Dependencies) applyDecay(ctx context.Context, p *progression.UserProgression, now time.Time) (progression.DecayResult, error) {
	res := d.Engine.ApplyPendingDecay(p, now)
	if !res.Applied() {
		return res, nil
	}
	if err := d.Store.Save(ctx, p); err != nil {
		return progression.DecayResult{}, err
	}
	return res, nil
}
