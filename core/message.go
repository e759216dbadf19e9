package core

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single spoken line within a session. Messages are append-only
// and strictly ordered by timestamp within their session.
type Message struct {
	ID        string    `json:"id" bson:"_id"`
	SessionID string    `json:"sessionId" bson:"sessionId"`
	RoomID    string    `json:"roomId" bson:"roomId"`
	Role      Role      `json:"role" bson:"role"`
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// NewMessage builds a message with a fresh id and a UTC timestamp.
func NewMessage(sessionID, roomID string, role Role, text string) Message {
	return Message{
		ID:        NewID(),
		SessionID: sessionID,
		RoomID:    roomID,
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// NewID generates a new unique identifier for sessions and messages.
func NewID() string { return uuid.NewString() }
