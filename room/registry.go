package room

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/graphicsoft-com/RHA-simulation/ack"
	"github.com/graphicsoft-com/RHA-simulation/core"
	"github.com/graphicsoft-com/RHA-simulation/internal/metrics"
	"github.com/graphicsoft-com/RHA-simulation/logging"
	"github.com/graphicsoft-com/RHA-simulation/model"
	"github.com/graphicsoft-com/RHA-simulation/persona"
	"github.com/graphicsoft-com/RHA-simulation/session"
)

// DefaultRooms returns the standard six-room floor layout.
func DefaultRooms() []core.Room {
	return []core.Room{
		{ID: "room1", Name: "Provo Peak"},
		{ID: "room2", Name: "Squaw Peak"},
		{ID: "room3", Name: "Y Mountain"},
		{ID: "room4", Name: "Cascade"},
		{ID: "room5", Name: "Timpanogos"},
		{ID: "room6", Name: "Lone Peak"},
	}
}

// runState is the registry's handle to a live room loop. The running flag is
// the cooperative stop signal; done closes when the loop goroutine exits.
type runState struct {
	running atomic.Bool
	done    chan struct{}
}

// Options configures a Registry.
type Options struct {
	// Config sets the turn loop timings and budget.
	Config Config

	// Rooms is the set of known rooms. Defaults to DefaultRooms.
	Rooms []core.Room

	// Store persists sessions and messages. Defaults to an in-memory store.
	Store core.SessionStore

	// Generator produces turn text. Defaults to a scripted mock; production
	// wiring supplies an OpenAI or Anthropic backed generator.
	Generator core.Generator

	// Broadcaster receives turn and status events.
	Broadcaster core.Broadcaster

	// Gate coordinates playback acknowledgments. A fresh gate is created
	// when none is supplied.
	Gate *ack.Gate

	// Logger for orchestration events. Defaults to a no-op logger.
	Logger logging.Logger

	// Metrics collector. Nil disables instrumentation.
	Metrics *metrics.Collector

	// ClinicianInstructions is the system prompt for clinician turns.
	ClinicianInstructions string

	// PatientInstructions renders the patient system prompt for a profile.
	PatientInstructions func(profile string) string

	// ProfilePicker selects a patient profile for a new session.
	ProfilePicker func() string
}

// Registry owns the set of rooms and their running conversations. All
// methods are safe for concurrent use.
type Registry struct {
	orch  *Orchestrator
	rooms []core.Room
	byID  map[string]core.Room

	mu     sync.Mutex
	active map[string]*runState
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	logger  logging.Logger
	metrics *metrics.Collector
}

// New creates a Registry with the given options applied.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{
		Config:                DefaultConfig,
		Rooms:                 DefaultRooms(),
		Store:                 session.NewInMemoryStore(),
		Broadcaster:           core.NopBroadcaster{},
		Logger:                logging.NoOpLogger{},
		ClinicianInstructions: persona.ClinicianInstructions,
		PatientInstructions:   persona.PatientInstructions,
		ProfilePicker:         persona.RandomProfile,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Generator == nil {
		opts.Generator = model.NewMock()
	}
	if opts.Gate == nil {
		opts.Gate = ack.NewGate()
	}

	ctx, cancel := context.WithCancel(context.Background())

	byID := make(map[string]core.Room, len(opts.Rooms))
	for _, rm := range opts.Rooms {
		byID[rm.ID] = rm
	}

	return &Registry{
		orch: &Orchestrator{
			cfg:                   opts.Config.withDefaults(),
			store:                 opts.Store,
			gen:                   opts.Generator,
			broadcaster:           opts.Broadcaster,
			gate:                  opts.Gate,
			logger:                opts.Logger,
			metrics:               opts.Metrics,
			clinicianInstructions: opts.ClinicianInstructions,
			patientInstructions:   opts.PatientInstructions,
			pickProfile:           opts.ProfilePicker,
		},
		rooms:   opts.Rooms,
		byID:    byID,
		active:  make(map[string]*runState),
		ctx:     ctx,
		cancel:  cancel,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Start launches a new session in the given room. It returns the created
// session immediately; the conversation itself runs on a background
// goroutine until the turn budget is spent, Stop is called, or the registry
// closes.
func (r *Registry) Start(ctx context.Context, roomID string) (*core.Session, error) {
	rm, ok := r.byID[roomID]
	if !ok {
		return nil, core.ErrInvalidRoom
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, core.ErrNotRunning
	}
	if _, busy := r.active[roomID]; busy {
		r.mu.Unlock()
		return nil, core.ErrAlreadyRunning
	}
	state := &runState{done: make(chan struct{})}
	state.running.Store(true)
	// Reserve the slot before session creation so a concurrent Start sees
	// the room as busy. The slot stays held until the loop goroutine exits,
	// which also rejects a restart during the stop window.
	r.active[roomID] = state
	r.mu.Unlock()

	sess, err := r.orch.store.CreateSession(ctx, roomID)
	if err != nil {
		r.mu.Lock()
		delete(r.active, roomID)
		r.mu.Unlock()
		close(state.done)
		return nil, err
	}

	r.metrics.SessionStarted()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.active, roomID)
			r.mu.Unlock()
			r.metrics.SessionEnded()
			close(state.done)
		}()
		// The loop runs on the registry's context, not the caller's: the
		// HTTP request that started the room ends long before the
		// conversation does.
		r.orch.run(r.ctx, rm, sess, state)
	}()

	return sess, nil
}

// Stop requests a running room to halt at the next turn boundary. The
// in-flight turn completes first, including its ack wait and settling pause.
// Stop returns as soon as the request is registered; it does not wait for
// the loop to exit.
func (r *Registry) Stop(roomID string) error {
	if _, ok := r.byID[roomID]; !ok {
		return core.ErrInvalidRoom
	}
	r.mu.Lock()
	state, ok := r.active[roomID]
	r.mu.Unlock()
	if !ok {
		return core.ErrNotRunning
	}
	state.running.Store(false)
	return nil
}

// IsRunning reports whether the room currently has a live session.
func (r *Registry) IsRunning(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[roomID]
	return ok
}

// Snapshot returns the running state of every known room.
func (r *Registry) Snapshot() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.rooms))
	for _, rm := range r.rooms {
		_, ok := r.active[rm.ID]
		out[rm.ID] = ok
	}
	return out
}

// Rooms returns a copy of the known room set in configuration order.
func (r *Registry) Rooms() []core.Room {
	out := make([]core.Room, len(r.rooms))
	copy(out, r.rooms)
	return out
}

// Room looks up a room by id.
func (r *Registry) Room(id string) (core.Room, bool) {
	rm, ok := r.byID[id]
	return rm, ok
}

// Acknowledge reports playback completion for the room's pending turn. It
// returns true when a turn was actually waiting.
func (r *Registry) Acknowledge(roomID string) bool {
	return r.orch.gate.Acknowledge(roomID)
}

// StartAll starts every idle room. Rooms already running are skipped.
func (r *Registry) StartAll(ctx context.Context) {
	for _, rm := range r.rooms {
		if _, err := r.Start(ctx, rm.ID); err != nil {
			if err == core.ErrAlreadyRunning {
				continue
			}
			r.logger.Warn("failed to start room", "room_id", rm.ID, "error", err)
		}
	}
}

// StopAll requests every running room to halt.
func (r *Registry) StopAll() {
	for _, rm := range r.rooms {
		if err := r.Stop(rm.ID); err == nil {
			r.logger.Info("stop requested", "room_id", rm.ID)
		}
	}
}

// Close stops all rooms, cancels in-flight generation, and waits for every
// loop to finish or for ctx to expire.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	for _, state := range r.active {
		state.running.Store(false)
	}
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
