package testutil

import (
	"sync"

	"github.com/graphicsoft-com/RHA-simulation/core"
)

// CaptureBroadcaster records every published event for later assertions.
type CaptureBroadcaster struct {
	mu       sync.Mutex
	turns    []core.TurnEvent
	statuses []core.RoomStatusEvent
}

// NewCaptureBroadcaster creates an empty capturing broadcaster.
func NewCaptureBroadcaster() *CaptureBroadcaster { return &CaptureBroadcaster{} }

// PublishTurn implements core.Broadcaster.
func (b *CaptureBroadcaster) PublishTurn(ev core.TurnEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = append(b.turns, ev)
}

// PublishRoomStatus implements core.Broadcaster.
func (b *CaptureBroadcaster) PublishRoomStatus(ev core.RoomStatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, ev)
}

// Turns returns a copy of the captured turn events.
func (b *CaptureBroadcaster) Turns() []core.TurnEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.TurnEvent, len(b.turns))
	copy(out, b.turns)
	return out
}

// Statuses returns a copy of the captured room status events.
func (b *CaptureBroadcaster) Statuses() []core.RoomStatusEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.RoomStatusEvent, len(b.statuses))
	copy(out, b.statuses)
	return out
}
