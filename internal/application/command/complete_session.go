package command

import (
	"context"
	"fmt"
	"time"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE SESSION COMMAND
// Awards XP, energy and streak for a finished session exactly once.
// Pending decay is applied first so the session gain lands on today's energy.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteSessionCommand rewards a finished session.
type CompleteSessionCommand struct {
	UserID    string
	SessionID string
}

// CompleteSessionResult contains the outcome of the reward.
type CompleteSessionResult struct {
	// Decay is the lazy decay applied before the reward.
	Decay progression.DecayResult `json:"decay"`

	// Session is the reward, or the {success:false} variant for an unfinished session.
	Session progression.SessionResult `json:"session"`

	// Progression is the state after the operation.
	Progression *progression.UserProgression `json:"progression"`
}

// CompleteSessionHandler handles the CompleteSessionCommand.
type CompleteSessionHandler struct {
	deps Dependencies
}

// NewCompleteSessionHandler creates a new CompleteSessionHandler.
func NewCompleteSessionHandler(deps Dependencies) *CompleteSessionHandler {
	return &CompleteSessionHandler{deps: deps.withDefaults()}
}

// Handle executes the complete session command. It returns
// shared.ErrSessionAlreadyRewarded if the session was rewarded before.
func (h *CompleteSessionHandler) Handle(ctx context.Context, cmd CompleteSessionCommand) (*CompleteSessionResult, error) {
	var (
		result CompleteSessionResult
		events []shared.Event
	)

	err := h.deps.update(ctx, cmd.UserID, func(ctx context.Context, p *progression.UserProgression, now time.Time) error {
		session, err := h.deps.Sessions.GetSession(ctx, cmd.UserID, cmd.SessionID)
		if err != nil {
			return err
		}
		if session.IsRewarded() {
			return shared.ErrSessionAlreadyRewarded
		}

		decay := h.deps.Engine.ApplyPendingDecay(p, now)
		res := h.deps.Engine.OnSessionCompleted(p, session.Outcome(), now)

		switch {
		case res.Completed:
			if err := h.deps.Store.SaveRewarded(ctx, p, session.ID, res.Reward.XP, now); err != nil {
				return err
			}
		case decay.Applied():
			if err := h.deps.Store.Save(ctx, p); err != nil {
				return err
			}
		}

		result = CompleteSessionResult{Decay: decay, Session: res, Progression: p}
		events = append(decayEvents(p.UserID, decay, now), sessionEvents(p, session.ID, res, now)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete_session: %w", err)
	}

	if result.Session.Completed {
		h.deps.Logger.Info("session rewarded",
			"user_id", cmd.UserID,
			"session_id", cmd.SessionID,
			"xp", result.Session.Reward.XP,
			"level_up", result.Session.LevelUp(),
			"streak", result.Session.Streak.Streak,
		)
	}
	h.deps.publish(events...)

	return &result, nil
}

// sessionEvents converts a session reward into domain events.
func sessionEvents(p *progression.UserProgression, sessionID string, res progression.SessionResult, now time.Time) []shared.Event {
	if !res.Completed {
		return nil
	}

	events := []shared.Event{
		shared.NewSessionRewardedEvent(p.UserID, sessionID,
			res.Reward.XP, res.Reward.BaseXP, res.Reward.BonusXP, res.Reward.GoalReached,
			p.ExperiencePoints, res.Minutes, now),
		shared.NewStreakUpdatedEvent(p.UserID, res.Streak.Streak, now),
	}
	if res.Streak.Broken {
		events = append(events, shared.NewStreakBrokenEvent(p.UserID, "session", now))
	}
	if res.LevelUp() {
		events = append(events, shared.NewLevelUpEvent(p.UserID, res.Level.OldLevel, res.Level.NewLevel, p.ExperiencePoints, now))
	}
	return events
}
