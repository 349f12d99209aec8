package command

import (
	"context"
	"fmt"

	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// DeleteProgressionCommand removes a user's progression and sessions.
type DeleteProgressionCommand struct {
	UserID string
}

// DeleteProgressionHandler handles the DeleteProgressionCommand.
type DeleteProgressionHandler struct {
	deps Dependencies
}

// NewDeleteProgressionHandler creates a new DeleteProgressionHandler.
func NewDeleteProgressionHandler(deps Dependencies) *DeleteProgressionHandler {
	return &DeleteProgressionHandler{deps: deps.withDefaults()}
}

// Handle executes the delete command.
func (h *DeleteProgressionHandler) Handle(ctx context.Context, cmd DeleteProgressionCommand) error {
	release, err := h.deps.Locker.Lock(ctx, cmd.UserID)
	if err != nil {
		return fmt.Errorf("delete_progression: lock: %w", err)
	}
	defer release()

	if err := h.deps.Store.Delete(ctx, cmd.UserID); err != nil {
		return fmt.Errorf("delete_progression: %w", err)
	}

	h.deps.invalidate(ctx, cmd.UserID)
	h.deps.Logger.Info("progression deleted", "user_id", cmd.UserID)
	h.deps.publish(shared.NewProgressionDeletedEvent(cmd.UserID, h.deps.Now()))

	return nil
}
