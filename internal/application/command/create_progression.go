package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE PROGRESSION COMMAND
// Creates the progression record (and its pet) for a new user.
// ══════════════════════════════════════════════════════════════════════════════

// CreateProgressionCommand contains the data to create a progression.
type CreateProgressionCommand struct {
	// UserID is generated when empty.
	UserID string

	// PetName must be 3-30 characters.
	PetName string

	// PetType is "cat" or "dog".
	PetType string
}

// CreateProgressionHandler handles the CreateProgressionCommand.
type CreateProgressionHandler struct {
	deps Dependencies
}

// NewCreateProgressionHandler creates a new CreateProgressionHandler.
func NewCreateProgressionHandler(deps Dependencies) *CreateProgressionHandler {
	return &CreateProgressionHandler{deps: deps.withDefaults()}
}

// Handle executes the create progression command.
func (h *CreateProgressionHandler) Handle(ctx context.Context, cmd CreateProgressionCommand) (*progression.UserProgression, error) {
	userID := cmd.UserID
	if userID == "" {
		userID = uuid.NewString()
	}

	now := h.deps.Now()
	p, err := progression.NewUserProgression(progression.NewProgressionParams{
		UserID:  userID,
		PetName: cmd.PetName,
		PetType: cmd.PetType,
		Now:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("create_progression: %w", err)
	}

	if err := h.deps.Store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create_progression: %w", err)
	}

	h.deps.Logger.Info("progression created", "user_id", p.UserID, "pet_type", p.PetType)
	h.deps.publish(shared.NewProgressionCreatedEvent(p.UserID, p.PetName, string(p.PetType), now))

	return p, nil
}
