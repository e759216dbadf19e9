package core

import (
	"context"
	"time"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	// SessionActive marks a session whose conversation is still running.
	SessionActive SessionStatus = "active"
	// SessionStopped marks a finalized session. Stopped sessions are never
	// mutated again.
	SessionStopped SessionStatus = "stopped"
)

// Session is one recorded run of a room's conversation. A session is created
// when a room starts, mutated by the orchestrator while the conversation is
// live (profile assignment, message count, terminal status) and frozen once
// Status becomes SessionStopped.
type Session struct {
	ID             string        `json:"id" bson:"_id"`
	RoomID         string        `json:"roomId" bson:"roomId"`
	StartTime      time.Time     `json:"startTime" bson:"startTime"`
	EndTime        *time.Time    `json:"endTime,omitempty" bson:"endTime,omitempty"`
	Status         SessionStatus `json:"status" bson:"status"`
	PatientProfile string        `json:"patientProfile" bson:"patientProfile"`
	MessageCount   int           `json:"messageCount" bson:"messageCount"`
}

// SessionStore persists sessions and their message streams.
//
// Implementations must be safe for concurrent use: every running room
// mutates its own session from an independent goroutine. All mutating
// operations are treated as non-fatal by the orchestrator; a failed write is
// logged and the conversation continues from in-memory state.
type SessionStore interface {
	// CreateSession opens a new active session for the room. The patient
	// profile starts out as persona.Pending until the orchestrator assigns one.
	CreateSession(ctx context.Context, roomID string) (*Session, error)

	// GetSession returns the session by id, or ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// ActiveSession returns the most recently started active session for the
	// room, or nil if the room has none.
	ActiveSession(ctx context.Context, roomID string) (*Session, error)

	// SetPatientProfile records the profile chosen for the session.
	SetPatientProfile(ctx context.Context, sessionID, profile string) error

	// AppendMessage persists a single spoken turn.
	AppendMessage(ctx context.Context, msg Message) error

	// IncrementMessageCount bumps the session's running message counter.
	IncrementMessageCount(ctx context.Context, sessionID string) error

	// FinalizeSession marks the session stopped and records its end time.
	// Finalizing an already stopped session is a no-op.
	FinalizeSession(ctx context.Context, sessionID string, endTime time.Time) error

	// SessionsByRoom returns one page of the room's past sessions, newest
	// first, along with the total session count for the room.
	SessionsByRoom(ctx context.Context, roomID string, page, limit int) ([]Session, int64, error)

	// MessagesBySession returns every message of a session in chronological
	// order.
	MessagesBySession(ctx context.Context, sessionID string) ([]Message, error)
}
