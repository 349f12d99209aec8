package command

import (
	"context"
	"fmt"
	"time"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY DECAY COMMAND
// Catches a user's pet up with the days elapsed since the last check.
// Used by reads, by the sweep job, and by the CLI.
// ══════════════════════════════════════════════════════════════════════════════

// ApplyDecayCommand applies pending decay for one user.
type ApplyDecayCommand struct {
	UserID string

	// FillCache stores the resulting snapshot in the cache before the
	// user lock is released. Used by the read path.
	FillCache bool
}

// ApplyDecayResult contains the decay and the resulting state.
type ApplyDecayResult struct {
	Decay       progression.DecayResult      `json:"decay"`
	Progression *progression.UserProgression `json:"progression"`
}

// ApplyDecayHandler handles the ApplyDecayCommand.
type ApplyDecayHandler struct {
	deps Dependencies
}

// NewApplyDecayHandler creates a new ApplyDecayHandler.
func NewApplyDecayHandler(deps Dependencies) *ApplyDecayHandler {
	return &ApplyDecayHandler{deps: deps.withDefaults()}
}

// Handle executes the decay command. Calling it again on the same
// calendar day is a no-op.
func (h *ApplyDecayHandler) Handle(ctx context.Context, cmd ApplyDecayCommand) (*ApplyDecayResult, error) {
	var (
		result ApplyDecayResult
		events []shared.Event
	)

	err := h.deps.updateCached(ctx, cmd.UserID, cmd.FillCache, func(ctx context.Context, p *progression.UserProgression, now time.Time) error {
		decay, err := h.deps.applyDecay(ctx, p, now)
		if err != nil {
			return err
		}
		result = ApplyDecayResult{Decay: decay, Progression: p}
		events = decayEvents(p.UserID, decay, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply_decay: %w", err)
	}

	if result.Decay.Applied() {
		h.deps.Logger.Debug("decay applied",
			"user_id", cmd.UserID,
			"days", result.Decay.DaysPassed,
			"energy", result.Decay.NewEnergy,
			"streak_broken", result.Decay.StreakBroken,
		)
	}
	h.deps.publish(events...)

	return &result, nil
}
