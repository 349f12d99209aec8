package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studypet/studypet-hub/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// START SESSION COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// StartSessionCommand opens a new study session.
type StartSessionCommand struct {
	UserID string

	// SessionID is generated when empty.
	SessionID string

	Title string

	// TargetDuration is the goal in minutes.
	TargetDuration int

	// StartTime defaults to now.
	StartTime time.Time
}

// StartSessionHandler handles the StartSessionCommand.
type StartSessionHandler struct {
	deps Dependencies
}

// NewStartSessionHandler creates a new StartSessionHandler.
func NewStartSessionHandler(deps Dependencies) *StartSessionHandler {
	return &StartSessionHandler{deps: deps.withDefaults()}
}

// Handle executes the start session command.
func (h *StartSessionHandler) Handle(ctx context.Context, cmd StartSessionCommand) (*progression.StudySession, error) {
	sessionID := cmd.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	start := cmd.StartTime
	if start.IsZero() {
		start = h.deps.Now()
	}

	s, err := progression.NewStudySession(progression.NewSessionParams{
		ID:             sessionID,
		UserID:         cmd.UserID,
		Title:          cmd.Title,
		TargetDuration: cmd.TargetDuration,
		StartTime:      start,
	})
	if err != nil {
		return nil, fmt.Errorf("start_session: %w", err)
	}

	if err := h.deps.Sessions.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("start_session: %w", err)
	}

	h.deps.Logger.Debug("session started", "user_id", s.UserID, "session_id", s.ID, "target", s.TargetDuration)
	return s, nil
}
