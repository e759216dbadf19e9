// Package anthropic implements core.Generator using the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/graphicsoft-com/RHA-simulation/core"
)

// Options configure the Anthropic generator (model id, temperature, max
// tokens, API key). Defaults mirror the OpenAI generator: short, slightly
// creative spoken turns.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Generator wraps the Anthropic Messages API behind core.Generator.
type Generator struct {
	client *anthropic.Client
	opts   Options
}

// NewGenerator creates a generator with its own client.
func NewGenerator(optFns ...func(o *Options)) *Generator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)
	return &Generator{client: &client, opts: opts}
}

// NewGeneratorFromClient creates a generator from an existing client.
func NewGeneratorFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Generator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.8,
		MaxTokens:   150,
	}
}

// Generate implements core.Generator. The Messages API requires the
// conversation to open with a user message, but a speaking role's own view
// opens with its previous assistant line (and is empty on the very first
// turn), so a neutral user message is prepended when needed.
func (g *Generator) Generate(ctx context.Context, instructions string, history core.History) (string, error) {
	var messages []anthropic.MessageParam
	for _, u := range history {
		block := anthropic.NewTextBlock(u.Text)
		if u.Speaker == core.SpeakerAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	if len(messages) == 0 || messages[0].Role != anthropic.MessageParamRoleUser {
		opener := anthropic.NewUserMessage(anthropic.NewTextBlock("(The visit begins.)"))
		messages = append([]anthropic.MessageParam{opener}, messages...)
	}

	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       g.opts.Model,
		Messages:    messages,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: anthropic.Float(g.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: instructions}},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			builder.WriteString(block.AsText().Text)
		}
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}
