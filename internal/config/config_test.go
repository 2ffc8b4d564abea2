package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/assets"
	"github.com/dusk-indust/contentpipe/internal/llm"
	"github.com/dusk-indust/contentpipe/internal/orchestrator"
)

// clearEnv blanks the variables Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONTENTPIPE_LOG_LEVEL", "CONTENTPIPE_LOG_FILE", "CONTENTPIPE_ADDR",
		"CONTENTPIPE_MAX_ATTEMPTS", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME",
		"GROQ_API_KEY", "OPENAI_API_KEY", "OLLAMA_BASE_URL", "CONTENTPIPE_OFFLINE",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 90*time.Second, cfg.Timeouts().For(agent.KindWriter))
	assert.False(t, cfg.StageEnabled(agent.KindPublisher))
	assert.True(t, cfg.StageEnabled(agent.KindSEO))
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "contentpipe.yaml", `
system:
  log_level: debug
  stage_timeout: 45s
agents:
  research:
    timeout: 2m
  seo:
    enabled: false
quality:
  pass_score: 70
  min_sub_score: 50
  override_score: 80
  max_attempts: 5
content:
  tone: casual
publisher:
  enabled: true
  output_dir: out
templates:
  - name: seo_refresh
    stages: [editor, seo]
llm:
  providers:
    - name: ollama
      model: mistral
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.System.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.Timeouts().For(agent.KindWriter))
	assert.Equal(t, 2*time.Minute, cfg.Timeouts().For(agent.KindResearch))
	assert.False(t, cfg.StageEnabled(agent.KindSEO))
	assert.True(t, cfg.StageEnabled(agent.KindPublisher))
	assert.Equal(t, orchestrator.GateConfig{PassScore: 70, MinSubScore: 50, OverrideScore: 80}, cfg.Quality.GateConfig)
	assert.Equal(t, 5, cfg.Quality.MaxAttempts)
	assert.Equal(t, "casual", cfg.Content.Tone)
	// Unset keys keep their defaults.
	assert.Equal(t, "blog_post", cfg.Content.ContentType)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	cat, err := cfg.Catalog()
	require.NoError(t, err)
	tmpl, ok := cat.Lookup("seo_refresh")
	require.True(t, ok)
	assert.Equal(t, []agent.Kind{agent.KindEditor, agent.KindSEO}, tmpl.Stages)

	require.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, "mistral", cfg.LLM.Providers[0].Model)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "contentpipe.yml", "llm:\n  providers:\n    - name: openai\n      model: gpt-4o\n")
	writeFile(t, dir, ".env", "GROQ_API_KEY=from-dotenv\n")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CONTENTPIPE_LOG_LEVEL", "WARN")
	t.Setenv("CONTENTPIPE_ADDR", ":9999")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	// godotenv never overrides a variable that is set, even to "".
	require.NoError(t, os.Unsetenv("GROQ_API_KEY"))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.System.LogLevel)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "localhost:4318", cfg.Telemetry.Endpoint)
	assert.Equal(t, []llm.ProviderSettings{
		{Name: "openai", APIKey: "sk-test", Model: "gpt-4o"},
		{Name: "groq", APIKey: "from-dotenv"},
	}, cfg.LLM.Providers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":         "system: [",
		"bad log level":    "system:\n  log_level: loud\n",
		"bad agent":        "agents:\n  translator:\n    timeout: 1s\n",
		"bad provider":     "llm:\n  providers:\n    - name: bard\n",
		"sub above pass":   "quality:\n  pass_score: 50\n  min_sub_score: 60\n",
		"zero attempts":    "quality:\n  max_attempts: 0\n",
		"publisher no dir": "publisher:\n  enabled: true\n  output_dir: \"\"\n",
		"template with qa": "templates:\n  - name: x\n    stages: [qa]\n",
		"score too high":   "quality:\n  override_score: 120\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			writeFile(t, dir, "contentpipe.yml", body)
			cfg, err := Load(dir)
			if err == nil {
				_, err = cfg.Catalog()
			}
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg := Default()
	cfg.Content.WordCount = 1200
	cfg.System.StageTimeout = 30 * time.Second
	require.NoError(t, Save(filepath.Join(dir, "contentpipe.yml"), cfg))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestResearchBackends(t *testing.T) {
	types := func(bs []agent.SourceBackend) []string {
		var out []string
		for _, b := range bs {
			out = append(out, b.Type())
		}
		return out
	}

	cfg := Default()
	assert.Equal(t, []string{"wikipedia", "web", "local"}, types(cfg.ResearchBackends()))

	cfg.Research.Offline = true
	assert.Equal(t, []string{"web", "local"}, types(cfg.ResearchBackends()))
}

func TestLoad_OfflineEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONTENTPIPE_OFFLINE", "true")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.Research.Offline)
}

func TestLoad_SampleConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "contentpipe.yml", string(assets.SampleConfig))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Timeouts().For(agent.KindResearch))
	assert.False(t, cfg.StageEnabled(agent.KindPublisher))
	require.Len(t, cfg.LLM.Providers, 3)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.Providers[2].BaseURL)

	cat, err := cfg.Catalog()
	require.NoError(t, err)
	_, ok := cat.Lookup("seo_refresh")
	assert.True(t, ok)
}
