// Package testutil contains helper fakes used across orchestration tests: a
// scripted generator that records every prompt it is handed, and a
// broadcaster that captures published events for later assertions. These
// helpers are intentionally minimal and not intended for production usage.
package testutil
