// Package room contains the conversation orchestration core: the per-room
// turn loop (Orchestrator) and the process-wide table of running rooms
// (Registry).
//
// Each started room runs as an independent goroutine driving a fixed budget
// of alternating clinician/patient turns. Every turn is generated, persisted,
// broadcast and then paced against downstream playback through the ack gate
// before the next one begins. Stops are cooperative: the registry clears a
// room's running flag and the orchestrator observes it at the next turn
// boundary, so an in-flight generation or ack wait is never interrupted.
package room
