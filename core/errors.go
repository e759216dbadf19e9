package core

import "errors"

// Lifecycle errors returned by the room registry and session stores. Callers
// match them with errors.Is; the HTTP layer maps them onto status codes.
var (
	// ErrInvalidRoom is returned for a room id outside the configured set.
	ErrInvalidRoom = errors.New("invalid room")

	// ErrAlreadyRunning is returned when starting a room that has an active run.
	ErrAlreadyRunning = errors.New("room is already running")

	// ErrNotRunning is returned when stopping a room that has no active run.
	ErrNotRunning = errors.New("room is not running")

	// ErrSessionNotFound is returned by stores for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
)
