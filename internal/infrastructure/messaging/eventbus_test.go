package messaging

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypet/studypet-hub/internal/domain/shared"
)

const testUserID = "6f1c2a9e-8b7d-4c3e-9a10-2b4d5e6f7a8b"

var at = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
	err    error
}

func (p *recordingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func syncBus(remotes ...shared.EventPublisher) *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:     false,
		EnableMetrics: true,
		Remotes:       remotes,
	})
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var levelUps, all int
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error {
		levelUps++
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		all++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(testUserID, 1, 2, 150, at)))
	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent(testUserID, 3, at)))

	assert.Equal(t, 1, levelUps)
	assert.Equal(t, 2, all)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(3), snap.TotalHandlerExecs)
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("bad handler") }))

	var reached bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		reached = true
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewPetAdjustedEvent(testUserID, 50, "neutral", at)))
	assert.True(t, reached)
	assert.Equal(t, int64(2), bus.Metrics().Snapshot().HandlerFailures)
}

func TestInMemoryEventBus_ForwardsToRemotes(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("redis down")}
	ok := &recordingPublisher{}
	bus := syncBus(failing, ok)
	defer bus.Close()

	require.NoError(t, bus.Publish(shared.NewProgressionDeletedEvent(testUserID, at)))

	require.Len(t, ok.events, 1)
	assert.Equal(t, shared.EventProgressionDeleted, ok.events[0].EventType())
	assert.Len(t, failing.events, 1)
}

func TestInMemoryEventBus_Async(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())

	var count atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		count.Add(1)
		return nil
	}))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent(testUserID, i, at)))
	}
	bus.Wait()
	assert.Equal(t, int32(20), count.Load())

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(shared.NewStreakUpdatedEvent(testUserID, 1, at)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}
