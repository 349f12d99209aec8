package command

import (
	"context"
	"fmt"
	"time"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADJUST PET COMMAND
// Manual override of the pet's energy and/or mood.
// ══════════════════════════════════════════════════════════════════════════════

// AdjustPetCommand sets energy and/or mood explicitly.
type AdjustPetCommand struct {
	UserID string

	// Mood is applied when it is a known mood.
	Mood *string

	// Energy is clamped to [0, 100].
	Energy *int
}

// AdjustPetResult contains the outcome of the adjustment.
type AdjustPetResult struct {
	Changed     bool                         `json:"changed"`
	Decay       progression.DecayResult      `json:"decay"`
	Progression *progression.UserProgression `json:"progression"`
}

// AdjustPetHandler handles the AdjustPetCommand.
type AdjustPetHandler struct {
	deps Dependencies
}

// NewAdjustPetHandler creates a new AdjustPetHandler.
func NewAdjustPetHandler(deps Dependencies) *AdjustPetHandler {
	return &AdjustPetHandler{deps: deps.withDefaults()}
}

// Handle executes the adjust command. A request carrying only an unknown
// mood changes nothing and fails with shared.ErrInvalidMood.
func (h *AdjustPetHandler) Handle(ctx context.Context, cmd AdjustPetCommand) (*AdjustPetResult, error) {
	var mood *progression.Mood
	if cmd.Mood != nil {
		m, _ := progression.ParseMood(*cmd.Mood)
		mood = &m
	}
	if cmd.Energy == nil && (mood == nil || !mood.IsValid()) {
		return nil, fmt.Errorf("adjust_pet: %w", shared.ErrInvalidMood)
	}

	var (
		result AdjustPetResult
		events []shared.Event
	)

	err := h.deps.update(ctx, cmd.UserID, func(ctx context.Context, p *progression.UserProgression, now time.Time) error {
		decay := h.deps.Engine.ApplyPendingDecay(p, now)
		changed := h.deps.Engine.ManualAdjust(p, mood, cmd.Energy, now)

		if changed || decay.Applied() {
			if err := h.deps.Store.Save(ctx, p); err != nil {
				return err
			}
		}

		result = AdjustPetResult{Changed: changed, Decay: decay, Progression: p}
		events = decayEvents(p.UserID, decay, now)
		if changed {
			events = append(events, shared.NewPetAdjustedEvent(p.UserID, p.PetEnergy, string(p.PetMood), now))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("adjust_pet: %w", err)
	}

	h.deps.publish(events...)
	return &result, nil
}
