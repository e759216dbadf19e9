// Package openai implements core.Generator using the OpenAI Chat Completions
// API. Any OpenAI-compatible endpoint works via the BaseURL option, so
// DeepInfra or vLLM-hosted models can stand in for the hosted API.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/graphicsoft-com/RHA-simulation/core"
)

// Options configure the OpenAI generator. Completions are deliberately short
// and slightly creative: spoken turns should stay at two to three sentences
// without sounding repetitive across a thirty-turn visit.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	BaseURL             string
}

// Generator wraps the OpenAI Chat Completions API behind core.Generator.
type Generator struct {
	client *openai.Client
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
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)
	return &Generator{client: &client, opts: opts}
}

// NewGeneratorFromClient creates a generator from an existing client.
func NewGeneratorFromClient(client *openai.Client, optFns ...func(o *Options)) *Generator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.8,
		MaxCompletionTokens: 150,
	}
}

// Generate implements core.Generator. History speakers map directly onto
// chat roles; callers hand the patient a flipped view so both roles can be
// served by the same generator.
func (g *Generator) Generate(ctx context.Context, instructions string, history core.History) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(instructions))
	for _, u := range history {
		switch u.Speaker {
		case core.SpeakerAssistant:
			messages = append(messages, openai.AssistantMessage(u.Text))
		default:
			messages = append(messages, openai.UserMessage(u.Text))
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               g.opts.Model,
		Temperature:         openai.Float(g.opts.Temperature),
		MaxCompletionTokens: openai.Int(g.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}
