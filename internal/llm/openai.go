package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compile-time check.
var _ Generator = (*OpenAIGenerator)(nil)

// Default endpoints and models for the OpenAI-compatible providers.
const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	OllamaBaseURL = "http://localhost:11434"

	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
	DefaultOllamaModel = "llama3"
)

// ProviderSettings configures one chat completion backend.
type ProviderSettings struct {
	Name    string `yaml:"name" validate:"required,oneof=groq openai ollama"`
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// OpenAIGenerator generates text through an OpenAI-compatible chat
// completions API. Groq and Ollama are reached the same way with a
// different base URL.
type OpenAIGenerator struct {
	name   string
	model  string
	client openai.Client
}

// NewOpenAIGenerator builds a generator from provider settings, filling in
// the provider's default base URL and model.
func NewOpenAIGenerator(s ProviderSettings) (*OpenAIGenerator, error) {
	model := s.Model
	baseURL := s.BaseURL
	apiKey := s.APIKey

	switch s.Name {
	case ProviderOpenAI:
		if model == "" {
			model = DefaultOpenAIModel
		}
	case ProviderGroq:
		if model == "" {
			model = DefaultGroqModel
		}
		if baseURL == "" {
			baseURL = GroqBaseURL
		}
	case ProviderOllama:
		if model == "" {
			model = DefaultOllamaModel
		}
		if baseURL == "" {
			baseURL = OllamaBaseURL
		}
		// Ollama ignores the key but the client insists on one.
		if apiKey == "" {
			apiKey = "ollama"
		}
		baseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", s.Name)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("llm: %s api key missing", s.Name)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{
		name:   s.Name,
		model:  model,
		client: openai.NewClient(opts...),
	}, nil
}

// Name returns the provider name.
func (g *OpenAIGenerator) Name() string { return g.name }

// Generate sends the request as a single chat completion.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: %s completion: %w", g.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: " + g.name + ": empty choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("llm: " + g.name + ": empty completion")
	}
	return text, nil
}
