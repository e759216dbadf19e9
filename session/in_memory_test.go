package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphicsoft-com/RHA-simulation/core"
	"github.com/graphicsoft-com/RHA-simulation/persona"
)

// Interface compliance (compile-time assertion)
var _ core.SessionStore = (*InMemoryStore)(nil)

func TestInMemoryStore_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	sess, err := store.CreateSession(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, "room1", sess.RoomID)
	assert.Equal(t, core.SessionActive, sess.Status)
	assert.Equal(t, persona.Pending, sess.PatientProfile)
	assert.Nil(t, sess.EndTime)

	require.NoError(t, store.SetPatientProfile(ctx, sess.ID, "profile text"))

	msg := core.NewMessage(sess.ID, "room1", core.RoleClinician, "Good morning!")
	require.NoError(t, store.AppendMessage(ctx, msg))
	require.NoError(t, store.IncrementMessageCount(ctx, sess.ID))

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "profile text", got.PatientProfile)
	assert.Equal(t, 1, got.MessageCount)

	end := time.Now().UTC()
	require.NoError(t, store.FinalizeSession(ctx, sess.ID, end))
	got, err = store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SessionStopped, got.Status)
	require.NotNil(t, got.EndTime)
	assert.Equal(t, end, *got.EndTime)

	// Finalizing again keeps the first end time.
	require.NoError(t, store.FinalizeSession(ctx, sess.ID, end.Add(time.Hour)))
	got, _ = store.GetSession(ctx, sess.ID)
	assert.Equal(t, end, *got.EndTime)
}

func TestInMemoryStore_UnknownSession(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	_, err := store.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.ErrorIs(t, store.IncrementMessageCount(ctx, "nope"), core.ErrSessionNotFound)
	assert.ErrorIs(t, store.AppendMessage(ctx, core.Message{SessionID: "nope"}), core.ErrSessionNotFound)
	_, err = store.MessagesBySession(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestInMemoryStore_ActiveSession(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	active, err := store.ActiveSession(ctx, "room1")
	require.NoError(t, err)
	assert.Nil(t, active)

	first, _ := store.CreateSession(ctx, "room1")
	require.NoError(t, store.FinalizeSession(ctx, first.ID, time.Now()))
	second, _ := store.CreateSession(ctx, "room1")

	active, err = store.ActiveSession(ctx, "room1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
}

func TestInMemoryStore_SessionsByRoomPagination(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	var ids []string
	for i := 0; i < 5; i++ {
		sess, _ := store.CreateSession(ctx, "room1")
		ids = append(ids, sess.ID)
		// Distinct start times so the newest-first ordering is deterministic.
		store.mu.Lock()
		store.sessions[sess.ID].StartTime = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		store.mu.Unlock()
	}
	_, _ = store.CreateSession(ctx, "room2")

	pageOne, total, err := store.SessionsByRoom(ctx, "room1", 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, pageOne, 2)
	assert.Equal(t, ids[4], pageOne[0].ID)
	assert.Equal(t, ids[3], pageOne[1].ID)

	pageThree, _, err := store.SessionsByRoom(ctx, "room1", 3, 2)
	require.NoError(t, err)
	require.Len(t, pageThree, 1)
	assert.Equal(t, ids[0], pageThree[0].ID)

	empty, total, err := store.SessionsByRoom(ctx, "room1", 4, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Empty(t, empty)
}

func TestInMemoryStore_MessagesChronological(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	sess, _ := store.CreateSession(ctx, "room1")

	for i, text := range []string{"one", "two", "three"} {
		msg := core.NewMessage(sess.ID, "room1", core.RoleForTurn(i), text)
		require.NoError(t, store.AppendMessage(ctx, msg))
	}

	msgs, err := store.MessagesBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, core.RoleClinician, msgs[0].Role)
	assert.Equal(t, core.RolePatient, msgs[1].Role)
	assert.Equal(t, "three", msgs[2].Text)
}
