// Package jobs contains the background jobs run by the scheduler.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/studypet/studypet-hub/internal/application/command"
	"github.com/studypet/studypet-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DECAY SWEEP JOB
// Applies pending decay to every pet that has not been checked today, so
// idle users see correct energy and streaks even without opening the app.
// ══════════════════════════════════════════════════════════════════════════════

// StaleLister returns users whose last decay check is older than before.
type StaleLister interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// DecayApplier applies pending decay to one user.
type DecayApplier interface {
	Handle(ctx context.Context, cmd command.ApplyDecayCommand) (*command.ApplyDecayResult, error)
}

// DecaySweepConfig contains configuration for the decay sweep job.
type DecaySweepConfig struct {
	// Concurrency is the number of users processed in parallel.
	Concurrency int

	// BatchSize is how many stale users are fetched per query.
	BatchSize int

	// Timeout for a single user.
	UserTimeout time.Duration

	// MaxBatches bounds one run (0 = unlimited).
	MaxBatches int

	// Location defines the calendar day boundary.
	Location *time.Location
}

// DefaultDecaySweepConfig returns sensible defaults.
func DefaultDecaySweepConfig() DecaySweepConfig {
	return DecaySweepConfig{
		Concurrency: 5,
		BatchSize:   200,
		UserTimeout: 10 * time.Second,
		MaxBatches:  50,
		Location:    time.UTC,
	}
}

// DecaySweepStats contains statistics from one run.
type DecaySweepStats struct {
	Batches      int           `json:"batches"`
	Processed    int           `json:"processed"`
	Decayed      int           `json:"decayed"`
	StreaksReset int           `json:"streaks_reset"`
	Failed       int           `json:"failed"`
	Duration     time.Duration `json:"duration_ns"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  time.Time     `json:"completed_at"`
}

// DecaySweepJob walks stale progressions and applies their decay.
type DecaySweepJob struct {
	stale  StaleLister
	decay  DecayApplier
	clock  timeutil.Clock
	config DecaySweepConfig
	logger *slog.Logger

	lastStats atomic.Value // *DecaySweepStats
}

// NewDecaySweepJob creates a new decay sweep job.
func NewDecaySweepJob(
	stale StaleLister,
	decay DecayApplier,
	clock timeutil.Clock,
	logger *slog.Logger,
	config DecaySweepConfig,
) *DecaySweepJob {
	defaults := DefaultDecaySweepConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.UserTimeout <= 0 {
		config.UserTimeout = defaults.UserTimeout
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DecaySweepJob{
		stale:  stale,
		decay:  decay,
		clock:  clock,
		config: config,
		logger: logger.With("job", "decay_sweep"),
	}
}

// Name returns the job name.
func (j *DecaySweepJob) Name() string {
	return "decay_sweep"
}

// Description returns a human-readable description.
func (j *DecaySweepJob) Description() string {
	return "Applies pending energy decay and streak resets to idle pets"
}

// LastStats returns statistics from the last completed run.
func (j *DecaySweepJob) LastStats() *DecaySweepStats {
	if v := j.lastStats.Load(); v != nil {
		return v.(*DecaySweepStats)
	}
	return nil
}

// Run executes the sweep. It fails if more than half of the processed
// users could not be updated.
func (j *DecaySweepJob) Run(ctx context.Context) error {
	stats := &DecaySweepStats{StartedAt: j.clock.Now()}
	before := timeutil.StartOfDay(stats.StartedAt, j.config.Location)

	j.logger.Info("starting decay sweep", "before", before.Format(time.RFC3339))

	// Users that failed stay stale; seen keeps them from being refetched.
	seen := make(map[string]struct{})

	for j.config.MaxBatches == 0 || stats.Batches < j.config.MaxBatches {
		if err := ctx.Err(); err != nil {
			return err
		}

		limit := j.config.BatchSize + len(seen)
		ids, err := j.stale.ListStale(ctx, before, limit)
		if err != nil {
			return fmt.Errorf("list stale progressions: %w", err)
		}

		batch := make([]string, 0, len(ids))
		for _, id := range ids {
			if len(batch) == j.config.BatchSize {
				break
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			batch = append(batch, id)
		}
		if len(batch) == 0 {
			break
		}

		stats.Batches++
		j.processBatch(ctx, batch, stats)
	}

	stats.CompletedAt = j.clock.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastStats.Store(stats)

	j.logger.Info("decay sweep completed",
		"batches", stats.Batches,
		"processed", stats.Processed,
		"decayed", stats.Decayed,
		"streaks_reset", stats.StreaksReset,
		"failed", stats.Failed,
		"duration", stats.Duration.String(),
	)

	if stats.Processed > 0 && stats.Failed > stats.Processed/2 {
		return fmt.Errorf("too many failures: %d/%d", stats.Failed, stats.Processed)
	}
	return nil
}

func (j *DecaySweepJob) processBatch(ctx context.Context, ids []string, stats *DecaySweepStats) {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, j.config.Concurrency)
	)

	for _, id := range ids {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()

			userCtx, cancel := context.WithTimeout(ctx, j.config.UserTimeout)
			defer cancel()

			res, err := j.decay.Handle(userCtx, command.ApplyDecayCommand{UserID: userID})

			mu.Lock()
			defer mu.Unlock()
			stats.Processed++
			if err != nil {
				stats.Failed++
				if !errors.Is(err, context.Canceled) {
					j.logger.Warn("decay failed", "user_id", userID, "error", err)
				}
				return
			}
			if res.Decay.Applied() {
				stats.Decayed++
			}
			if res.Decay.StreakBroken {
				stats.StreaksReset++
			}
		}(id)
	}

	wg.Wait()
}
