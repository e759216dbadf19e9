package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/graphicsoft-com/RHA-simulation/core"
)

// GeneratorCall captures a single Generate invocation.
type GeneratorCall struct {
	Instructions string
	History      core.History
}

// ScriptedGenerator returns canned lines in order and records every call so
// tests can assert on the exact prompts the orchestrator produced.
type ScriptedGenerator struct {
	mu       sync.Mutex
	lines    []string
	calls    []GeneratorCall
	failures map[int]error
}

// NewScriptedGenerator creates a generator that returns the given lines in
// order, then synthetic "line N" text once the script is exhausted.
func NewScriptedGenerator(lines ...string) *ScriptedGenerator {
	return &ScriptedGenerator{lines: lines, failures: make(map[int]error)}
}

// FailOn makes the zero-based nth call return err instead of text.
func (g *ScriptedGenerator) FailOn(n int, err error) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[n] = err
	return g
}

// Generate implements core.Generator.
func (g *ScriptedGenerator) Generate(ctx context.Context, instructions string, history core.History) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.calls)
	g.calls = append(g.calls, GeneratorCall{Instructions: instructions, History: history.Clone()})
	if err, ok := g.failures[n]; ok {
		return "", err
	}
	if n < len(g.lines) {
		return g.lines[n], nil
	}
	return fmt.Sprintf("line %d", n), nil
}

// Calls returns a copy of every recorded invocation.
func (g *ScriptedGenerator) Calls() []GeneratorCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GeneratorCall, len(g.calls))
	copy(out, g.calls)
	return out
}

// CallCount returns the number of Generate invocations so far.
func (g *ScriptedGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
