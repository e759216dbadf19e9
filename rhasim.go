// Package rhasim provides a high-level façade over the room registry and its
// supporting services (session store, acknowledgment gate, text generation
// and logging), enabling embedded use of the simulation without the HTTP
// surface. Most applications:
//  1. Create a Simulation via New() (optionally overriding the defaults)
//  2. Start rooms and feed playback acknowledgments
//  3. Close the simulation on shutdown
//
// All defaults are safe for local development and testing; production
// deployments supply a durable session store, a real generation backend and
// a structured logger.
package rhasim

import (
	"context"

	"github.com/graphicsoft-com/RHA-simulation/ack"
	"github.com/graphicsoft-com/RHA-simulation/core"
	"github.com/graphicsoft-com/RHA-simulation/internal/metrics"
	"github.com/graphicsoft-com/RHA-simulation/logging"
	"github.com/graphicsoft-com/RHA-simulation/room"
	"github.com/graphicsoft-com/RHA-simulation/session"
)

// Options configures the Simulation instance.
type Options struct {
	// Config sets the turn loop timings and budget.
	Config room.Config

	// Rooms overrides the default six-room floor.
	Rooms []core.Room

	// SessionStore persists sessions and messages (defaults to in-memory).
	SessionStore core.SessionStore

	// Generator produces turn text (defaults to a scripted mock).
	Generator core.Generator

	// Broadcaster receives turn and status events (defaults to a no-op).
	Broadcaster core.Broadcaster

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// Metrics collector. Nil disables instrumentation.
	Metrics *metrics.Collector
}

// Simulation is the high-level façade aggregating the registry and the
// acknowledgment gate.
type Simulation struct {
	registry *room.Registry
	gate     *ack.Gate
}

// New creates a Simulation with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Simulation {
	opts := Options{
		Config:       room.DefaultConfig,
		Rooms:        room.DefaultRooms(),
		SessionStore: session.NewInMemoryStore(),
		Broadcaster:  core.NopBroadcaster{},
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	gate := ack.NewGate()
	registry := room.New(func(o *room.Options) {
		o.Config = opts.Config
		o.Rooms = opts.Rooms
		o.Store = opts.SessionStore
		o.Generator = opts.Generator
		o.Broadcaster = opts.Broadcaster
		o.Gate = gate
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})

	return &Simulation{registry: registry, gate: gate}
}

// Registry exposes the underlying room registry for HTTP and scheduler wiring.
func (s *Simulation) Registry() *room.Registry { return s.registry }

// Start launches a session in the given room.
func (s *Simulation) Start(ctx context.Context, roomID string) (*core.Session, error) {
	return s.registry.Start(ctx, roomID)
}

// Stop requests the room's conversation to halt at the next turn boundary.
func (s *Simulation) Stop(roomID string) error { return s.registry.Stop(roomID) }

// IsRunning reports whether the room has a live session.
func (s *Simulation) IsRunning(roomID string) bool { return s.registry.IsRunning(roomID) }

// Acknowledge reports playback completion for the room's pending turn.
func (s *Simulation) Acknowledge(roomID string) bool { return s.gate.Acknowledge(roomID) }

// Close stops every room and waits for the loops to finish or ctx to expire.
func (s *Simulation) Close(ctx context.Context) error { return s.registry.Close(ctx) }
