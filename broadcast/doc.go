// Package broadcast delivers live conversation events to websocket
// consumers. Each room has a playback client that joins its room, receives
// new_message events, speaks them aloud, and reports completion with a
// tts_done event; dashboard clients join once and observe every room.
//
// The Hub implements core.Broadcaster, so the orchestration layer publishes
// events without knowing anything about websockets.
package broadcast
