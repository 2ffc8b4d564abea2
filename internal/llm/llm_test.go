package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator is a Generator driven by a function field.
type fakeGenerator struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context, req Request) (string, error)
}

func (f *fakeGenerator) Name() string { return f.name }

func (f *fakeGenerator) Generate(ctx context.Context, req Request) (string, error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}

func TestTemplateGenerator_Deterministic(t *testing.T) {
	g := NewTemplateGenerator()
	req := Request{Topic: "remote work", ContentType: "blog_post", WordCount: 600}

	a, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	b, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "# The Complete Guide to Remote Work\n"))
	assert.Contains(t, a, "## Introduction")
	assert.Contains(t, a, "## Conclusion")
	assert.Contains(t, a, "\n- ")
	assert.NotContains(t, a, "%!")
}

func TestTemplateGenerator_ScalesWithWordCount(t *testing.T) {
	g := NewTemplateGenerator()
	short, err := g.Generate(context.Background(), Request{Topic: "x", WordCount: 300})
	require.NoError(t, err)
	long, err := g.Generate(context.Background(), Request{Topic: "x", WordCount: 1500})
	require.NoError(t, err)

	assert.Greater(t, len(strings.Fields(long)), len(strings.Fields(short)))
	assert.GreaterOrEqual(t, len(strings.Fields(long)), 1200)
}

func TestTemplateGenerator_Social(t *testing.T) {
	out, err := NewTemplateGenerator().Generate(context.Background(), Request{Topic: "green energy", ContentType: "social_media"})
	require.NoError(t, err)
	assert.Contains(t, out, "#GreenEnergy")
	assert.Less(t, len(strings.Fields(out)), 120)
}

func TestTemplateGenerator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTemplateGenerator().Generate(ctx, Request{Topic: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_PrefersPriorityOrder(t *testing.T) {
	openaiGen := &fakeGenerator{name: ProviderOpenAI, fn: func(context.Context, Request) (string, error) { return "openai", nil }}
	groqGen := &fakeGenerator{name: ProviderGroq, fn: func(context.Context, Request) (string, error) { return "groq", nil }}
	m := NewManager(nil, openaiGen, groqGen)

	assert.Equal(t, []string{ProviderGroq, ProviderOpenAI, ProviderTemplate}, m.Available())
	assert.True(t, m.HasModel())

	out, err := m.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "groq", out)
	assert.Equal(t, int32(0), openaiGen.calls.Load())
}

func TestManager_FallsBackToTemplate(t *testing.T) {
	broken := &fakeGenerator{name: ProviderOpenAI, fn: func(context.Context, Request) (string, error) {
		return "", errors.New("rate limited")
	}}
	m := NewManager(nil, broken)

	out, err := m.Generate(context.Background(), Request{Topic: "remote work", WordCount: 300})
	require.NoError(t, err)
	assert.Contains(t, out, "Remote Work")
	assert.Equal(t, int32(1), broken.calls.Load())
}

func TestManager_TemplateOnly(t *testing.T) {
	m := NewManager(nil)
	assert.False(t, m.HasModel())
	assert.Equal(t, ProviderTemplate, m.Name())
	assert.Equal(t, map[string]bool{
		ProviderGroq: false, ProviderOpenAI: false, ProviderOllama: false, ProviderTemplate: true,
	}, m.Status())
}

func TestManager_UnknownProvider(t *testing.T) {
	_, err := NewManager(nil).GenerateWith(context.Background(), "anthropic", Request{})
	assert.Error(t, err)
}

func TestNewOpenAIGenerator_Validation(t *testing.T) {
	_, err := NewOpenAIGenerator(ProviderSettings{Name: ProviderOpenAI})
	assert.Error(t, err, "missing key")

	_, err = NewOpenAIGenerator(ProviderSettings{Name: "bard", APIKey: "k"})
	assert.Error(t, err)

	g, err := NewOpenAIGenerator(ProviderSettings{Name: ProviderOllama})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, g.Name())
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"# Title\n\nBody"}}]}`))
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator(ProviderSettings{Name: ProviderOpenAI, APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), Request{System: "be brief", Prompt: "write", MaxTokens: 100, Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody", out)
}

func TestDetector_Ollama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	gens := NewDetector(nil).Detect(context.Background(), []ProviderSettings{
		{Name: ProviderOllama, BaseURL: srv.URL},
		{Name: ProviderGroq},
		{Name: ProviderOpenAI, APIKey: "k"},
	})

	var names []string
	for _, g := range gens {
		names = append(names, g.Name())
	}
	assert.ElementsMatch(t, []string{ProviderOllama, ProviderOpenAI}, names)
}

func TestDetector_OllamaDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	gens := NewDetector(nil).Detect(context.Background(), []ProviderSettings{{Name: ProviderOllama, BaseURL: srv.URL}})
	assert.Empty(t, gens)
}
