package command

import (
	"context"
	"fmt"
	"time"

	"github.com/studypet/studypet-hub/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// FINISH SESSION COMMAND
// Stores the end of a session and immediately rewards it.
// ══════════════════════════════════════════════════════════════════════════════

// FinishSessionCommand ends a running session.
type FinishSessionCommand struct {
	UserID    string
	SessionID string

	// EndTime defaults to now.
	EndTime time.Time

	// FocusRating is an optional 1-5 self-assessment.
	FocusRating *int
}

// FinishSessionResult contains the finished session and its reward.
type FinishSessionResult struct {
	Session *progression.StudySession `json:"session"`
	Reward  *CompleteSessionResult    `json:"reward"`
}

// FinishSessionHandler handles the FinishSessionCommand.
type FinishSessionHandler struct {
	deps     Dependencies
	complete *CompleteSessionHandler
}

// NewFinishSessionHandler creates a new FinishSessionHandler.
func NewFinishSessionHandler(deps Dependencies, complete *CompleteSessionHandler) *FinishSessionHandler {
	deps = deps.withDefaults()
	if complete == nil {
		complete = NewCompleteSessionHandler(deps)
	}
	return &FinishSessionHandler{deps: deps, complete: complete}
}

// Handle executes the finish session command.
func (h *FinishSessionHandler) Handle(ctx context.Context, cmd FinishSessionCommand) (*FinishSessionResult, error) {
	session, err := h.deps.Sessions.GetSession(ctx, cmd.UserID, cmd.SessionID)
	if err != nil {
		return nil, fmt.Errorf("finish_session: %w", err)
	}

	end := cmd.EndTime
	if end.IsZero() {
		end = h.deps.Now()
	}

	if err := session.Finish(end, cmd.FocusRating); err != nil {
		return nil, fmt.Errorf("finish_session: %w", err)
	}
	if err := h.deps.Sessions.FinishSession(ctx, session); err != nil {
		return nil, fmt.Errorf("finish_session: %w", err)
	}

	reward, err := h.complete.Handle(ctx, CompleteSessionCommand{UserID: cmd.UserID, SessionID: cmd.SessionID})
	if err != nil {
		return nil, err
	}
	if reward.Session.Completed {
		session.MarkRewarded(reward.Session.Reward.XP, h.deps.Now())
	}

	return &FinishSessionResult{Session: session, Reward: reward}, nil
}
