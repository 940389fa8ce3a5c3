package outreach

import "context"

// Generator produces email copy from a prompt. Satisfied by the openai and
// anthropic clients; selected by the outreach.generator config key.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
