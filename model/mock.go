package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/graphicsoft-com/RHA-simulation/core"
)

// Mock is a lightweight in-memory Generator useful for tests and demos. It
// returns scripted lines in order; once the script is exhausted it echoes a
// placeholder derived from the call index. Safe for concurrent use.
type Mock struct {
	mu    sync.Mutex
	lines []string
	errs  map[int]error
	calls int
}

// NewMock constructs a Mock with an optional script of lines.
func NewMock(lines ...string) *Mock {
	return &Mock{lines: lines, errs: make(map[int]error)}
}

// FailOn makes the generator return err on the given 0-indexed call.
func (m *Mock) FailOn(call int, err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[call] = err
	return m
}

// Calls returns how many times Generate has been invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements core.Generator.
func (m *Mock) Generate(ctx context.Context, instructions string, history core.History) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.calls
	m.calls++

	if err, ok := m.errs[call]; ok {
		return "", err
	}
	if call < len(m.lines) {
		return m.lines[call], nil
	}
	return fmt.Sprintf("Mock line %d", call), nil
}
