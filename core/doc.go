// Package core provides the foundational domain types and interfaces for the
// RHA simulation. It defines the core abstractions for:
//
//   - Rooms (the fixed set of independent conversation slots)
//   - Sessions (one recorded run of a room's conversation)
//   - Messages (individual spoken turns attributed to a role)
//   - History (the in-memory transcript and its perspective transform)
//   - Pluggable collaborators: Generator, SessionStore and Broadcaster
//
// The package intentionally keeps implementation concerns (persistence,
// websocket delivery, model providers, the turn loop itself) out of scope,
// exposing small interfaces so higher level packages can supply custom
// backends without changing calling code.
package core
