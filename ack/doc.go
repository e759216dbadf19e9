// Package ack implements the per-room gate that paces the turn loop against
// downstream playback. After broadcasting a turn the orchestrator blocks on
// Gate.Await until the consumer acknowledges playback (a tts_done signal) or
// a fallback timeout elapses, whichever comes first. Each arm cycle resolves
// exactly once; acknowledgments with no pending waiter are dropped.
package ack
