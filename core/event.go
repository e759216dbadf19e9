package core

import "time"

// RoomStatus is the externally visible activity state of a room.
type RoomStatus string

const (
	// RoomActive means a conversation is currently running in the room.
	RoomActive RoomStatus = "active"
	// RoomIdle means the room has no running conversation.
	RoomIdle RoomStatus = "idle"
)

// TurnEvent is published after each successfully generated turn. Consumers
// use it to render and speak the line; the orchestrator then waits for their
// playback acknowledgment before the next turn.
type TurnEvent struct {
	RoomID    string    `json:"roomId"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomStatusEvent is published when a room transitions between active and
// idle so dashboards can stay in sync without polling.
type RoomStatusEvent struct {
	RoomID       string     `json:"roomId"`
	Status       RoomStatus `json:"status"`
	MessageCount int        `json:"messageCount"`
}

// Broadcaster delivers events to interested listeners. Both methods are
// fire-and-forget: the orchestrator never blocks on delivery and expects no
// acknowledgment through this interface (playback acks arrive out-of-band
// through the ack gate).
type Broadcaster interface {
	PublishTurn(ev TurnEvent)
	PublishRoomStatus(ev RoomStatusEvent)
}

// NopBroadcaster discards all events. Useful for tests and headless runs.
type NopBroadcaster struct{}

// PublishTurn discards the event.
func (NopBroadcaster) PublishTurn(TurnEvent) {}

// PublishRoomStatus discards the event.
func (NopBroadcaster) PublishRoomStatus(RoomStatusEvent) {}
