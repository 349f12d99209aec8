package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened to a user's progression.
const (
	// Progression lifecycle events
	EventProgressionCreated EventType = "progression.created"
	EventProgressionDeleted EventType = "progression.deleted"

	// Reward events
	EventSessionRewarded EventType = "progress.session_rewarded"
	EventLevelUp         EventType = "progress.level_up"
	EventStreakUpdated   EventType = "progress.streak_updated"
	EventStreakBroken    EventType = "progress.streak_broken"

	// Pet events
	EventEnergyDecayed EventType = "pet.energy_decayed"
	EventPetAdjusted   EventType = "pet.adjusted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with the given time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Lifecycle Events
// ═══════════════════════════════════════════════════════════════════════════

// ProgressionCreatedEvent is emitted when a user's progression record is created.
type ProgressionCreatedEvent struct {
	BaseEvent
	PetName string `json:"pet_name"`
	PetType string `json:"pet_type"`
}

// Payload implements Event interface.
func (e ProgressionCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"pet_name": e.PetName,
		"pet_type": e.PetType,
	}
}

// NewProgressionCreatedEvent creates a new ProgressionCreatedEvent.
func NewProgressionCreatedEvent(userID, petName, petType string, at time.Time) ProgressionCreatedEvent {
	return ProgressionCreatedEvent{
		BaseEvent: NewBaseEvent(EventProgressionCreated, userID, at),
		PetName:   petName,
		PetType:   petType,
	}
}

// ProgressionDeletedEvent is emitted when a user's progression is removed.
type ProgressionDeletedEvent struct {
	BaseEvent
}

// Payload implements Event interface.
func (e ProgressionDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewProgressionDeletedEvent creates a new ProgressionDeletedEvent.
func NewProgressionDeletedEvent(userID string, at time.Time) ProgressionDeletedEvent {
	return ProgressionDeletedEvent{BaseEvent: NewBaseEvent(EventProgressionDeleted, userID, at)}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reward Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionRewardedEvent is emitted when a completed study session awards XP.
type SessionRewardedEvent struct {
	BaseEvent
	SessionID   string `json:"session_id"`
	XP          int    `json:"xp"`
	BaseXP      int    `json:"base_xp"`
	BonusXP     int    `json:"bonus_xp"`
	GoalReached bool   `json:"goal_reached"`
	NewTotal    int    `json:"new_total"`
	Minutes     int    `json:"minutes"`
}

// Payload implements Event interface.
func (e SessionRewardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":   e.SessionID,
		"xp":           e.XP,
		"base_xp":      e.BaseXP,
		"bonus_xp":     e.BonusXP,
		"goal_reached": e.GoalReached,
		"new_total":    e.NewTotal,
		"minutes":      e.Minutes,
	}
}

// NewSessionRewardedEvent creates a new SessionRewardedEvent.
func NewSessionRewardedEvent(userID, sessionID string, xp, baseXP, bonusXP int, goalReached bool, newTotal, minutes int, at time.Time) SessionRewardedEvent {
	return SessionRewardedEvent{
		BaseEvent:   NewBaseEvent(EventSessionRewarded, userID, at),
		SessionID:   sessionID,
		XP:          xp,
		BaseXP:      baseXP,
		BonusXP:     bonusXP,
		GoalReached: goalReached,
		NewTotal:    newTotal,
		Minutes:     minutes,
	}
}

// LevelUpEvent is emitted when a user reaches a new level.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
	TotalXP  int `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel, totalXP int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID, at),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// StreakUpdatedEvent is emitted when the daily streak grows or starts.
type StreakUpdatedEvent struct {
	BaseEvent
	Streak int `json:"streak"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"streak": e.Streak}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID string, streak int, at time.Time) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventStreakUpdated, userID, at),
		Streak:    streak,
	}
}

// StreakBrokenEvent is emitted when a streak lapses.
type StreakBrokenEvent struct {
	BaseEvent
	// Path is "session" when a late session restarted the streak and
	// "decay" when lazy catch-up reset it to zero.
	Path string `json:"path"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"path": e.Path}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID, path string, at time.Time) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent: NewBaseEvent(EventStreakBroken, userID, at),
		Path:      path,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pet Events
// ═══════════════════════════════════════════════════════════════════════════

// EnergyDecayedEvent is emitted when pending daily decay has been applied.
type EnergyDecayedEvent struct {
	BaseEvent
	DaysPassed int    `json:"days_passed"`
	EnergyLost int    `json:"energy_lost"`
	NewEnergy  int    `json:"new_energy"`
	NewMood    string `json:"new_mood"`
}

// Payload implements Event interface.
func (e EnergyDecayedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"days_passed": e.DaysPassed,
		"energy_lost": e.EnergyLost,
		"new_energy":  e.NewEnergy,
		"new_mood":    e.NewMood,
	}
}

// NewEnergyDecayedEvent creates a new EnergyDecayedEvent.
func NewEnergyDecayedEvent(userID string, days, lost, energy int, mood string, at time.Time) EnergyDecayedEvent {
	return EnergyDecayedEvent{
		BaseEvent:  NewBaseEvent(EventEnergyDecayed, userID, at),
		DaysPassed: days,
		EnergyLost: lost,
		NewEnergy:  energy,
		NewMood:    mood,
	}
}

// PetAdjustedEvent is emitted after a manual energy/mood override.
type PetAdjustedEvent struct {
	BaseEvent
	Energy int    `json:"energy"`
	Mood   string `json:"mood"`
}

// Payload implements Event interface.
func (e PetAdjustedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"energy": e.Energy,
		"mood":   e.Mood,
	}
}

// NewPetAdjustedEvent creates a new PetAdjustedEvent.
func NewPetAdjustedEvent(userID string, energy int, mood string, at time.Time) PetAdjustedEvent {
	return PetAdjustedEvent{
		BaseEvent: NewBaseEvent(EventPetAdjusted, userID, at),
		Energy:    energy,
		Mood:      mood,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope serializes an event payload into an envelope.
func NewEventEnvelope(id string, event Event) (EventEnvelope, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return EventEnvelope{}, err
	}

	env := EventEnvelope{
		ID:          id,
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.OccurredAt(),
		Version:     1,
		Payload:     payload,
	}

	if base, ok := baseOf(event); ok {
		env.Version = base.Version
		env.CorrelationID = base.CorrelationID
	}

	return env, nil
}

func baseOf(event Event) (BaseEvent, bool) {
	type based interface{ base() BaseEvent }
	if b, ok := event.(based); ok {
		return b.base(), true
	}
	return BaseEvent{}, false
}

func (e BaseEvent) base() BaseEvent { return e }

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
