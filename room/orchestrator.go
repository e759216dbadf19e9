package room

import (
	"context"
	"time"

	"github.com/graphicsoft-com/RHA-simulation/ack"
	"github.com/graphicsoft-com/RHA-simulation/core"
	"github.com/graphicsoft-com/RHA-simulation/internal/metrics"
	"github.com/graphicsoft-com/RHA-simulation/logging"
)

// Config controls the shape of every room's turn loop.
type Config struct {
	// TurnsPerSession is the fixed turn budget. Thirty turns is roughly
	// fifteen exchanges, about ten minutes of spoken conversation.
	TurnsPerSession int
	// AckTimeout bounds the wait for a playback acknowledgment. If the
	// consumer never acks (tab closed, error), the loop advances anyway.
	AckTimeout time.Duration
	// SettlePause is the short natural pause after an acknowledgment before
	// the next turn is generated.
	SettlePause time.Duration
}

// DefaultConfig mirrors the long-standing production timings.
var DefaultConfig = Config{
	TurnsPerSession: 30,
	AckTimeout:      30 * time.Second,
	SettlePause:     800 * time.Millisecond,
}

func (c Config) withDefaults() Config {
	if c.TurnsPerSession <= 0 {
		c.TurnsPerSession = DefaultConfig.TurnsPerSession
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = DefaultConfig.AckTimeout
	}
	if c.SettlePause < 0 {
		c.SettlePause = DefaultConfig.SettlePause
	}
	return c
}

// Orchestrator drives a single room's conversation from session creation to
// natural or forced completion. It is stateless across runs; all per-run
// state (history, message count) is local to the run method, so one
// orchestrator instance serves every room in the registry.
type Orchestrator struct {
	cfg         Config
	store       core.SessionStore
	gen         core.Generator
	broadcaster core.Broadcaster
	gate        *ack.Gate
	logger      logging.Logger
	metrics     *metrics.Collector

	clinicianInstructions string
	patientInstructions   func(profile string) string
	pickProfile           func() string
}

// run executes the turn loop. It is invoked on a detached goroutine by the
// registry and owns the session exclusively until it returns.
func (o *Orchestrator) run(ctx context.Context, rm core.Room, sess *core.Session, state *runState) {
	profile := o.pickProfile()
	if err := o.store.SetPatientProfile(ctx, sess.ID, profile); err != nil {
		o.metrics.PersistenceFailed()
		o.logger.Warn("failed to record patient profile", "room_id", rm.ID, "session_id", sess.ID, "error", err)
	}
	patientInstructions := o.patientInstructions(profile)

	o.logger.Info("session started", "room_id", rm.ID, "session_id", sess.ID)
	o.broadcaster.PublishRoomStatus(core.RoomStatusEvent{RoomID: rm.ID, Status: core.RoomActive})

	// Canonical history is kept from the clinician's perspective; the
	// patient is prompted with a flipped view.
	history := core.History{}
	messageCount := 0

	for turn := 0; turn < o.cfg.TurnsPerSession; turn++ {
		if !state.running.Load() {
			o.logger.Info("room stopped", "room_id", rm.ID, "session_id", sess.ID, "turn", turn)
			break
		}
		if ctx.Err() != nil {
			break
		}

		role := core.RoleForTurn(turn)
		instructions := o.clinicianInstructions
		view := history
		if role == core.RolePatient {
			instructions = patientInstructions
			view = history.Flipped()
		}

		start := time.Now()
		text, err := o.gen.Generate(ctx, instructions, view)
		if err != nil {
			// Recoverable: the turn is skipped entirely and the loop carries
			// on. Role assignment depends on the turn index, so the skip
			// does not shift the alternation of later turns.
			o.metrics.GenerationFailed(rm.ID)
			o.logger.Error("turn generation failed", "room_id", rm.ID, "turn", turn, "role", role, "error", err)
			continue
		}
		o.metrics.TurnGenerated(rm.ID, string(role), time.Since(start))

		speaker := core.SpeakerAssistant
		if role == core.RolePatient {
			speaker = core.SpeakerUser
		}
		history = append(history, core.Utterance{Speaker: speaker, Text: text})

		msg := core.NewMessage(sess.ID, rm.ID, role, text)
		if err := o.store.AppendMessage(ctx, msg); err != nil {
			// Conversational continuity wins over strict durability: the
			// in-memory history already has the line and the loop continues.
			o.metrics.PersistenceFailed()
			o.logger.Error("failed to persist message", "room_id", rm.ID, "session_id", sess.ID, "turn", turn, "error", err)
		} else if err := o.store.IncrementMessageCount(ctx, sess.ID); err != nil {
			o.metrics.PersistenceFailed()
			o.logger.Error("failed to increment message count", "room_id", rm.ID, "session_id", sess.ID, "error", err)
		}
		messageCount++

		o.broadcaster.PublishTurn(core.TurnEvent{
			RoomID:    rm.ID,
			SessionID: sess.ID,
			Role:      role,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		})

		// Suspend until the consumer has finished playing this turn.
		switch o.gate.Await(ctx, rm.ID, o.cfg.AckTimeout) {
		case ack.Acknowledged:
			o.logger.Debug("playback acknowledged", "room_id", rm.ID, "turn", turn)
		case ack.TimedOut:
			o.metrics.AckTimedOut(rm.ID)
			o.logger.Warn("playback ack timeout, advancing anyway", "room_id", rm.ID, "turn", turn)
		case ack.Cancelled:
			// Shutdown; the loop condition at the top exits on the next pass.
		}

		select {
		case <-time.After(o.cfg.SettlePause):
		case <-ctx.Done():
		}
	}

	o.finalize(ctx, rm, sess, messageCount)
}

// finalize closes out the session and emits the terminal status event.
func (o *Orchestrator) finalize(ctx context.Context, rm core.Room, sess *core.Session, messageCount int) {
	// The run context may already be cancelled on shutdown; the terminal
	// write gets its own brief deadline.
	finCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := o.store.FinalizeSession(finCtx, sess.ID, time.Now().UTC()); err != nil {
		o.metrics.PersistenceFailed()
		o.logger.Error("failed to finalize session", "room_id", rm.ID, "session_id", sess.ID, "error", err)
	}

	o.gate.Discard(rm.ID)
	o.broadcaster.PublishRoomStatus(core.RoomStatusEvent{
		RoomID:       rm.ID,
		Status:       core.RoomIdle,
		MessageCount: messageCount,
	})
	o.logger.Info("session complete", "room_id", rm.ID, "session_id", sess.ID, "messages", messageCount)
}
