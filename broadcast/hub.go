package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/graphicsoft-com/RHA-simulation/core"
	"github.com/graphicsoft-com/RHA-simulation/logging"
)

// Wire event names. Inbound events come from clients, outbound events are
// pushed by the hub.
const (
	EventJoinRoom      = "join_room"
	EventJoinDashboard = "join_dashboard"
	EventTTSDone       = "tts_done"
	EventNewMessage    = "new_message"
	EventRoomUpdate    = "room_update"
)

const (
	writeTimeout = 5 * time.Second

	// sendBuffer is the number of outbound frames queued per client before
	// the hub gives up on it as a slow consumer.
	sendBuffer = 32
)

// Envelope is the framing for every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type ttsDonePayload struct {
	RoomID string `json:"roomId"`
}

// client is one connected websocket. Outbound frames go through a buffered
// channel drained by a dedicated writer goroutine, so publishers hand off a
// frame and return without touching the network.
type client struct {
	conn *websocket.Conn
	out  chan []byte

	mu        sync.Mutex
	room      string
	dashboard bool
	gone      bool
}

// enqueue hands a frame to the writer goroutine without blocking. It reports
// false when the client's buffer is full.
func (c *client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gone {
		return true
	}
	select {
	case c.out <- frame:
		return true
	default:
		return false
	}
}

// stop closes the outbound channel so the writer goroutine drains and exits.
// Safe to call more than once.
func (c *client) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gone {
		return
	}
	c.gone = true
	close(c.out)
}

// Options configures a Hub.
type Options struct {
	// Logger for connection lifecycle and delivery problems.
	Logger logging.Logger

	// Acknowledge is invoked when a client reports playback completion for a
	// room. It returns true when a turn was actually waiting.
	Acknowledge func(roomID string) bool

	// OriginPatterns is passed to the websocket accept handshake. Defaults
	// to allowing any origin, matching a kiosk deployment where playback
	// clients are served from arbitrary hosts.
	OriginPatterns []string
}

// Hub fans conversation events out to connected websocket clients and routes
// playback acknowledgments back to the orchestration layer. Publishing never
// waits on the network: each client is drained by its own writer goroutine,
// and a client that cannot keep up is disconnected.
type Hub struct {
	logger      logging.Logger
	acknowledge func(roomID string) bool
	accept      websocket.AcceptOptions

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a Hub with the given options applied.
func NewHub(optFns ...func(o *Options)) *Hub {
	opts := Options{
		Logger:         logging.NoOpLogger{},
		OriginPatterns: []string{"*"},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Acknowledge == nil {
		opts.Acknowledge = func(string) bool { return false }
	}
	return &Hub{
		logger:      opts.Logger,
		acknowledge: opts.Acknowledge,
		accept:      websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns},
		clients:     make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket and serves it until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &h.accept)
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}

	c := &client{conn: conn, out: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	go h.writeLoop(c)
	h.readLoop(r.Context(), c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
	conn.Close(websocket.StatusNormalClosure, "")
	h.logger.Debug("websocket client disconnected", "remote", r.RemoteAddr)
}

// writeLoop drains a client's outbound buffer onto the connection. Delivery
// happens here so a stalled consumer never holds up the goroutine publishing
// events.
func (h *Hub) writeLoop(c *client) {
	for frame := range c.out {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			h.logger.Warn("failed to deliver event, dropping client", "error", err)
			h.drop(c)
			return
		}
	}
}

// drop evicts a client that can no longer keep up.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
	c.conn.CloseNow()
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.logger.Warn("malformed websocket message", "error", err)
			continue
		}
		switch env.Event {
		case EventJoinRoom:
			var p joinRoomPayload
			if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
				h.logger.Warn("malformed join_room payload")
				continue
			}
			c.mu.Lock()
			c.room = p.RoomID
			c.mu.Unlock()
			h.logger.Info("client joined room", "room_id", p.RoomID)
		case EventJoinDashboard:
			c.mu.Lock()
			c.dashboard = true
			c.mu.Unlock()
			h.logger.Info("client joined dashboard")
		case EventTTSDone:
			var p ttsDonePayload
			if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
				h.logger.Warn("malformed tts_done payload")
				continue
			}
			if !h.acknowledge(p.RoomID) {
				h.logger.Debug("tts_done with no pending turn", "room_id", p.RoomID)
			}
		default:
			h.logger.Debug("ignoring unknown websocket event", "event", env.Event)
		}
	}
}

// PublishTurn implements core.Broadcaster. The event goes to clients joined
// to the room and to every dashboard client.
func (h *Hub) PublishTurn(ev core.TurnEvent) {
	h.publish(EventNewMessage, ev.RoomID, ev)
}

// PublishRoomStatus implements core.Broadcaster.
func (h *Hub) PublishRoomStatus(ev core.RoomStatusEvent) {
	h.publish(EventRoomUpdate, ev.RoomID, ev)
}

func (h *Hub) publish(event, roomID string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("failed to encode envelope", "event", event, "error", err)
		return
	}

	for _, c := range h.snapshot() {
		c.mu.Lock()
		interested := c.dashboard || c.room == roomID
		c.mu.Unlock()
		if !interested {
			continue
		}
		if !c.enqueue(frame) {
			h.logger.Warn("dropping slow websocket client", "event", event, "room_id", roomID)
			h.drop(c)
		}
	}
}

func (h *Hub) snapshot() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new connections.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
		c.conn.Close(websocket.StatusGoingAway, "shutting down")
	}
}
