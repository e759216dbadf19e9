package core

import "context"

// Generator produces the next line of dialogue for a role given its
// instructions and a perspective-appropriate view of the conversation so far.
//
// Implementations wrap a chat model provider. A returned error must leave the
// caller's history untouched; the orchestrator skips the turn and carries on.
type Generator interface {
	Generate(ctx context.Context, instructions string, history History) (string, error)
}

// GeneratorFunc is a functional adapter allowing ordinary functions to be
// used as Generators.
type GeneratorFunc func(ctx context.Context, instructions string, history History) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, instructions string, history History) (string, error) {
	return f(ctx, instructions, history)
}
