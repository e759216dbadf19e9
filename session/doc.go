// Package session houses concrete implementations of core.SessionStore. The
// interface itself (and the Session struct) live in the core package to
// centralize domain contracts. The in-memory store here serves tests and
// ephemeral demo runs; the mongo sub-package provides the durable backend.
// Only the wiring layer decides which implementation to instantiate.
package session
