package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/graphicsoft-com/RHA-simulation/core"
	"github.com/graphicsoft-com/RHA-simulation/persona"
)

// InMemoryStore is a volatile core.SessionStore keeping sessions and
// messages in process-local maps. It is safe for concurrent access and best
// suited for tests or demo runs without a database. Returned sessions are
// copies to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	messages map[string][]core.Message // keyed by session id, append order
	byRoom   map[string][]string       // session ids per room, creation order
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*core.Session),
		messages: make(map[string][]core.Message),
		byRoom:   make(map[string][]string),
	}
}

// CreateSession opens a new active session for the room.
func (s *InMemoryStore) CreateSession(_ context.Context, roomID string) (*core.Session, error) {
	sess := &core.Session{
		ID:             core.NewID(),
		RoomID:         roomID,
		StartTime:      time.Now().UTC(),
		Status:         core.SessionActive,
		PatientProfile: persona.Pending,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.byRoom[roomID] = append(s.byRoom[roomID], sess.ID)
	s.mu.Unlock()

	copied := *sess
	return &copied, nil
}

// GetSession returns a copy of the session by id.
func (s *InMemoryStore) GetSession(_ context.Context, sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, sessionID)
	}
	copied := *sess
	return &copied, nil
}

// ActiveSession returns the most recently started active session for the room.
func (s *InMemoryStore) ActiveSession(_ context.Context, roomID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byRoom[roomID]
	for i := len(ids) - 1; i >= 0; i-- {
		if sess := s.sessions[ids[i]]; sess.Status == core.SessionActive {
			copied := *sess
			return &copied, nil
		}
	}
	return nil, nil
}

// SetPatientProfile records the chosen profile on the session.
func (s *InMemoryStore) SetPatientProfile(_ context.Context, sessionID, profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrSessionNotFound, sessionID)
	}
	sess.PatientProfile = profile
	return nil
}

// AppendMessage persists one spoken turn.
func (s *InMemoryStore) AppendMessage(_ context.Context, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[msg.SessionID]; !ok {
		return fmt.Errorf("%w: %s", core.ErrSessionNotFound, msg.SessionID)
	}
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return nil
}

// IncrementMessageCount bumps the session's counter.
func (s *InMemoryStore) IncrementMessageCount(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrSessionNotFound, sessionID)
	}
	sess.MessageCount++
	return nil
}

// FinalizeSession marks the session stopped. Idempotent: an already stopped
// session keeps its original end time.
func (s *InMemoryStore) FinalizeSession(_ context.Context, sessionID string, endTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrSessionNotFound, sessionID)
	}
	if sess.Status == core.SessionStopped {
		return nil
	}
	sess.Status = core.SessionStopped
	sess.EndTime = &endTime
	return nil
}

// SessionsByRoom returns one page of the room's sessions, newest first.
func (s *InMemoryStore) SessionsByRoom(_ context.Context, roomID string, page, limit int) ([]core.Session, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRoom[roomID]
	all := make([]core.Session, 0, len(ids))
	for _, id := range ids {
		all = append(all, *s.sessions[id])
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].StartTime.After(all[j].StartTime) })

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []core.Session{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// MessagesBySession returns the session's messages in chronological order.
func (s *InMemoryStore) MessagesBySession(_ context.Context, sessionID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, sessionID)
	}
	msgs := make([]core.Message, len(s.messages[sessionID]))
	copy(msgs, s.messages[sessionID])
	return msgs, nil
}
