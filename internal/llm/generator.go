// Package llm provides the text generation capability used by the writer
// stage: OpenAI-compatible chat backends plus a deterministic template
// generator that is always available.
package llm

import "context"

// Provider names, in fallback priority order.
const (
	ProviderGroq     = "groq"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
	ProviderTemplate = "template"
)

// Priority is the order in which providers are preferred.
var Priority = []string{ProviderGroq, ProviderOpenAI, ProviderOllama, ProviderTemplate}

// Request describes one generation call. Topic, ContentType, Tone and
// WordCount are hints used by generators that do not interpret the prompt.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64

	Topic       string
	ContentType string
	Tone        string
	WordCount   int
}

// Generator produces text for a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}
