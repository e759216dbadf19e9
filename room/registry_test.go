package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphicsoft-com/RHA-simulation/core"
	"github.com/graphicsoft-com/RHA-simulation/internal/testutil"
	"github.com/graphicsoft-com/RHA-simulation/session"
)

func TestStartUnknownRoom(t *testing.T) {
	reg := New()
	defer reg.Close(context.Background())

	_, err := reg.Start(context.Background(), "room99")
	assert.ErrorIs(t, err, core.ErrInvalidRoom)
}

func TestDoubleStartRejected(t *testing.T) {
	// Long ack timeout parks the loop after the first turn, keeping the
	// room busy for the duration of the test.
	reg := New(func(o *Options) {
		o.Config = Config{TurnsPerSession: 30, AckTimeout: time.Minute, SettlePause: time.Millisecond}
	})
	defer reg.Close(context.Background())

	_, err := reg.Start(context.Background(), "room1")
	require.NoError(t, err)

	_, err = reg.Start(context.Background(), "room1")
	assert.ErrorIs(t, err, core.ErrAlreadyRunning)

	// A different room is unaffected.
	_, err = reg.Start(context.Background(), "room2")
	assert.NoError(t, err)
}

func TestStopStates(t *testing.T) {
	reg := New(func(o *Options) {
		o.Config = fastConfig(2)
	})
	defer reg.Close(context.Background())

	assert.ErrorIs(t, reg.Stop("room99"), core.ErrInvalidRoom)
	assert.ErrorIs(t, reg.Stop("room1"), core.ErrNotRunning)
}

func TestStopHaltsAtTurnBoundary(t *testing.T) {
	store := session.NewInMemoryStore()
	gen := testutil.NewScriptedGenerator()

	reg := New(func(o *Options) {
		o.Config = Config{TurnsPerSession: 30, AckTimeout: time.Minute, SettlePause: time.Millisecond}
		o.Store = store
		o.Generator = gen
	})
	defer reg.Close(context.Background())

	sess, err := reg.Start(context.Background(), "room1")
	require.NoError(t, err)

	// Wait for the first turn to be generated and parked on its ack.
	require.Eventually(t, func() bool { return gen.CallCount() == 1 },
		5*time.Second, 2*time.Millisecond)

	require.NoError(t, reg.Stop("room1"))

	// The in-flight ack wait is not interrupted by the stop; acknowledging
	// lets the loop reach the turn boundary where it observes the flag.
	reg.Acknowledge("room1")
	waitIdle(t, reg, "room1")

	got, err := store.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SessionStopped, got.Status)
	require.NotNil(t, got.EndTime)
	assert.Equal(t, 1, got.MessageCount)

	// No further turns after the stop.
	assert.Equal(t, 1, gen.CallCount())
}

func TestSnapshot(t *testing.T) {
	reg := New(func(o *Options) {
		o.Config = Config{TurnsPerSession: 30, AckTimeout: time.Minute, SettlePause: time.Millisecond}
	})
	defer reg.Close(context.Background())

	snap := reg.Snapshot()
	require.Len(t, snap, 6)
	for id, running := range snap {
		assert.False(t, running, "room %s should be idle", id)
	}

	_, err := reg.Start(context.Background(), "room3")
	require.NoError(t, err)

	snap = reg.Snapshot()
	assert.True(t, snap["room3"])
	assert.False(t, snap["room1"])
	assert.True(t, reg.IsRunning("room3"))
}

func TestStartAllStopAll(t *testing.T) {
	store := session.NewInMemoryStore()

	// A huge budget with a short ack timeout keeps every room visibly
	// running while letting the loops reach a turn boundary quickly once
	// stopped.
	reg := New(func(o *Options) {
		o.Config = Config{TurnsPerSession: 10000, AckTimeout: 10 * time.Millisecond, SettlePause: time.Millisecond}
		o.Store = store
	})
	defer reg.Close(context.Background())

	reg.StartAll(context.Background())
	for _, rm := range reg.Rooms() {
		assert.True(t, reg.IsRunning(rm.ID), "room %s should be running", rm.ID)
	}

	// StartAll on an already running floor is a no-op.
	reg.StartAll(context.Background())

	reg.StopAll()
	for _, rm := range reg.Rooms() {
		waitIdle(t, reg, rm.ID)
		sessions, total, err := store.SessionsByRoom(context.Background(), rm.ID, 1, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, sessions, 1)
		assert.Equal(t, core.SessionStopped, sessions[0].Status)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	reg := New(func(o *Options) {
		o.Config = Config{TurnsPerSession: 30, AckTimeout: time.Minute, SettlePause: time.Millisecond}
	})

	_, err := reg.Start(context.Background(), "room1")
	require.NoError(t, err)
	_, err = reg.Start(context.Background(), "room2")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, reg.Close(ctx))

	assert.False(t, reg.IsRunning("room1"))
	assert.False(t, reg.IsRunning("room2"))

	// A closed registry accepts no new sessions.
	_, err = reg.Start(context.Background(), "room1")
	assert.ErrorIs(t, err, core.ErrNotRunning)
}

func TestRoomLookup(t *testing.T) {
	reg := New()
	defer reg.Close(context.Background())

	rm, ok := reg.Room("room1")
	require.True(t, ok)
	assert.Equal(t, "Provo Peak", rm.Name)

	_, ok = reg.Room("room99")
	assert.False(t, ok)
}
