// Package generate provides the text completion boundary used for grounded answers.
package generate

import "context"

// Generator produces a completion for an assembled prompt. Failures surface
// as errors from this boundary; the chat pipeline converts them into a
// user-visible degraded answer rather than a hard failure.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Mock is a Generator returning a fixed answer (or error) for tests.
type Mock struct {
	Answer string
	Err    error
	// Prompts records every prompt received, in order.
	Prompts []string
}

// Generate returns the configured answer or error and records the prompt.
func (m *Mock) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Answer, nil
}
