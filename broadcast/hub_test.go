package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphicsoft-com/RHA-simulation/core"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, frame))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

// syncWithReadLoop sends a throwaway tts_done and waits for it to surface on
// the acks channel. Messages are processed in order, so once it arrives any
// previously sent join has been applied.
func syncWithReadLoop(t *testing.T, conn *websocket.Conn, acks <-chan string) {
	t.Helper()
	sendEvent(t, conn, EventTTSDone, ttsDonePayload{RoomID: "sync"})
	select {
	case <-acks:
	case <-time.After(5 * time.Second):
		t.Fatal("read loop never processed sync event")
	}
}

func newTestHub() (*Hub, chan string) {
	acks := make(chan string, 16)
	hub := NewHub(func(o *Options) {
		o.Acknowledge = func(roomID string) bool {
			acks <- roomID
			return roomID != "sync"
		}
	})
	return hub, acks
}

func TestRoomClientReceivesTurns(t *testing.T) {
	hub, acks := newTestHub()
	conn := dialHub(t, hub)

	sendEvent(t, conn, EventJoinRoom, joinRoomPayload{RoomID: "room1"})
	syncWithReadLoop(t, conn, acks)

	hub.PublishTurn(core.TurnEvent{RoomID: "room2", SessionID: "s2", Role: core.RoleClinician, Text: "elsewhere"})
	hub.PublishTurn(core.TurnEvent{RoomID: "room1", SessionID: "s1", Role: core.RolePatient, Text: "it hurts here"})

	env := readEnvelope(t, conn)
	assert.Equal(t, EventNewMessage, env.Event)

	var ev core.TurnEvent
	require.NoError(t, json.Unmarshal(env.Data, &ev))
	assert.Equal(t, "room1", ev.RoomID)
	assert.Equal(t, core.RolePatient, ev.Role)
	assert.Equal(t, "it hurts here", ev.Text)
}

func TestDashboardReceivesAllRooms(t *testing.T) {
	hub, acks := newTestHub()
	conn := dialHub(t, hub)

	sendEvent(t, conn, EventJoinDashboard, struct{}{})
	syncWithReadLoop(t, conn, acks)

	hub.PublishTurn(core.TurnEvent{RoomID: "room3", SessionID: "s3", Role: core.RoleClinician, Text: "hello"})
	hub.PublishRoomStatus(core.RoomStatusEvent{RoomID: "room5", Status: core.RoomIdle, MessageCount: 30})

	env := readEnvelope(t, conn)
	assert.Equal(t, EventNewMessage, env.Event)

	env = readEnvelope(t, conn)
	assert.Equal(t, EventRoomUpdate, env.Event)
	var st core.RoomStatusEvent
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, "room5", st.RoomID)
	assert.Equal(t, core.RoomIdle, st.Status)
	assert.Equal(t, 30, st.MessageCount)
}

func TestTTSDoneRoutesAcknowledgment(t *testing.T) {
	hub, acks := newTestHub()
	conn := dialHub(t, hub)

	sendEvent(t, conn, EventTTSDone, ttsDonePayload{RoomID: "room4"})

	select {
	case room := <-acks:
		assert.Equal(t, "room4", room)
	case <-time.After(5 * time.Second):
		t.Fatal("acknowledgment never routed")
	}
}

func TestMalformedMessagesIgnored(t *testing.T) {
	hub, acks := newTestHub()
	conn := dialHub(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not json")))
	sendEvent(t, conn, "unknown_event", struct{}{})
	sendEvent(t, conn, EventJoinRoom, struct{}{})

	// The connection survives and still processes later events.
	syncWithReadLoop(t, conn, acks)
	assert.Equal(t, 1, hub.ClientCount())
}

// A client whose writer has stalled must not hold up publishers. The handler
// registers the connection with a one-frame buffer and no writer goroutine,
// so the second publish overflows the buffer and evicts the client.
func TestSlowClientDroppedWithoutBlocking(t *testing.T) {
	hub, _ := newTestHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		c := &client{conn: conn, out: make(chan []byte, 1), room: "room1"}
		hub.mu.Lock()
		hub.clients[c] = struct{}{}
		hub.mu.Unlock()
		// Hold the connection open until either side closes it.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		5*time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		hub.PublishTurn(core.TurnEvent{RoomID: "room1", SessionID: "s1", Role: core.RoleClinician, Text: "one"})
		hub.PublishTurn(core.TurnEvent{RoomID: "room1", SessionID: "s1", Role: core.RolePatient, Text: "two"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a stalled client")
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub, _ := newTestHub()
	conn := dialHub(t, hub)

	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	assert.Error(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		5*time.Second, 5*time.Millisecond)
}
