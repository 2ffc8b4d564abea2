// Package config loads contentpipe settings from contentpipe.yml, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/llm"
	"github.com/dusk-indust/contentpipe/internal/orchestrator"
)

// FileNames are the config file names Load looks for, in order.
var FileNames = []string{"contentpipe.yml", "contentpipe.yaml"}

// Config is the full contentpipe configuration.
type Config struct {
	System    SystemConfig               `yaml:"system"`
	Agents    map[agent.Kind]AgentConfig `yaml:"agents,omitempty" validate:"dive,keys,oneof=research writer humanizer editor seo publisher qa,endkeys"`
	LLM       LLMConfig                  `yaml:"llm"`
	Research  ResearchConfig             `yaml:"research"`
	Quality   QualityConfig              `yaml:"quality"`
	Content   ContentDefaults            `yaml:"content"`
	Templates []orchestrator.Template    `yaml:"templates,omitempty" validate:"dive"`
	SEO       agent.SEOSettings          `yaml:"seo"`
	Publisher agent.PublisherSettings    `yaml:"publisher"`
	Server    ServerConfig               `yaml:"server"`
	Telemetry TelemetryConfig            `yaml:"telemetry"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	LogLevel     string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFile      string        `yaml:"log_file,omitempty"`
	StageTimeout time.Duration `yaml:"stage_timeout" validate:"gte=0"`
}

// AgentConfig toggles and tunes a single stage.
type AgentConfig struct {
	Enabled *bool         `yaml:"enabled,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
}

// LLMConfig lists the text generation providers to try.
type LLMConfig struct {
	Providers []llm.ProviderSettings `yaml:"providers,omitempty" validate:"dive"`
}

// ResearchConfig selects the research backends.
type ResearchConfig struct {
	// Offline skips Wikipedia and researches from the built-in briefing
	// backend only.
	Offline      bool          `yaml:"offline,omitempty"`
	WikipediaURL string        `yaml:"wikipedia_url,omitempty" validate:"omitempty,url"`
	Timeout      time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
}

// QualityConfig tunes the quality gate and regeneration loop.
type QualityConfig struct {
	orchestrator.GateConfig `yaml:",inline"`
	MaxAttempts             int `yaml:"max_attempts" validate:"gte=1,lte=10"`
}

// ContentDefaults apply to runs that leave a field unset.
type ContentDefaults struct {
	WorkflowType   string `yaml:"workflow_type"`
	ContentType    string `yaml:"content_type"`
	TargetAudience string `yaml:"target_audience"`
	Tone           string `yaml:"tone"`
	WordCount      int    `yaml:"word_count" validate:"gte=0"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// TelemetryConfig configures OTLP export. An empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		System: SystemConfig{
			LogLevel:     "info",
			StageTimeout: orchestrator.DefaultStageTimeout,
		},
		Quality: QualityConfig{
			GateConfig:  orchestrator.DefaultGateConfig(),
			MaxAttempts: orchestrator.DefaultMaxAttempts,
		},
		Content: ContentDefaults{
			WorkflowType:   orchestrator.DefaultTemplate,
			ContentType:    "blog_post",
			TargetAudience: "general",
			Tone:           "professional",
		},
		SEO:       agent.DefaultSEOSettings(),
		Publisher: agent.PublisherSettings{OutputDir: "published"},
		Server:    ServerConfig{Addr: ":8080"},
		Telemetry: TelemetryConfig{ServiceName: "contentpipe"},
	}
}

// Load reads contentpipe.yml or contentpipe.yaml from dir, then applies
// dir/.env and the environment. A missing config file is not an error: the
// defaults are used.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		cfg, err := LoadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	cfg := Default()
	if err := finish(cfg, dir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads the config file at path. Unlike Load it fails when the
// file does not exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := finish(cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func finish(cfg *Config, dir string) error {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", err)
	}
	cfg.applyEnv()
	return cfg.Validate()
}

// applyEnv overlays environment variables. Provider keys only fill in
// providers the file already names, or add the provider when absent.
func (c *Config) applyEnv() {
	if v := os.Getenv("CONTENTPIPE_LOG_LEVEL"); v != "" {
		c.System.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("CONTENTPIPE_LOG_FILE"); v != "" {
		c.System.LogFile = v
	}
	if v := os.Getenv("CONTENTPIPE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CONTENTPIPE_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Quality.MaxAttempts = n
		}
	}
	if v, err := strconv.ParseBool(os.Getenv("CONTENTPIPE_OFFLINE")); err == nil {
		c.Research.Offline = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}

	c.setProvider(llm.ProviderGroq, func(p *llm.ProviderSettings) bool {
		return fill(&p.APIKey, os.Getenv("GROQ_API_KEY"))
	})
	c.setProvider(llm.ProviderOpenAI, func(p *llm.ProviderSettings) bool {
		return fill(&p.APIKey, os.Getenv("OPENAI_API_KEY"))
	})
	c.setProvider(llm.ProviderOllama, func(p *llm.ProviderSettings) bool {
		return fill(&p.BaseURL, os.Getenv("OLLAMA_BASE_URL"))
	})
}

func (c *Config) setProvider(name string, apply func(*llm.ProviderSettings) bool) {
	for i := range c.LLM.Providers {
		if c.LLM.Providers[i].Name == name {
			apply(&c.LLM.Providers[i])
			return
		}
	}
	p := llm.ProviderSettings{Name: name}
	if apply(&p) {
		c.LLM.Providers = append(c.LLM.Providers, p)
	}
}

func fill(dst *string, v string) bool {
	if v == "" {
		return false
	}
	*dst = v
	return true
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Quality.MinSubScore > c.Quality.PassScore {
		return fmt.Errorf("config: quality.min_sub_score %v exceeds quality.pass_score %v",
			c.Quality.MinSubScore, c.Quality.PassScore)
	}
	return nil
}

// StageEnabled reports whether kind should be registered. Stages are
// enabled unless switched off; the publisher also follows its own setting.
func (c *Config) StageEnabled(kind agent.Kind) bool {
	if a, ok := c.Agents[kind]; ok && a.Enabled != nil {
		return *a.Enabled
	}
	if kind == agent.KindPublisher {
		return c.Publisher.Enabled
	}
	return true
}

// ResearchBackends returns the research backends to register.
func (c *Config) ResearchBackends() []agent.SourceBackend {
	if c.Research.Offline {
		return []agent.SourceBackend{agent.NewLocalBackend("web"), agent.NewLocalBackend("local")}
	}
	timeout := c.Research.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return []agent.SourceBackend{
		agent.NewWikipediaBackend(c.Research.WikipediaURL, timeout),
		agent.NewLocalBackend("web"),
		agent.NewLocalBackend("local"),
	}
}

// Timeouts returns the per-stage timeouts for the executor.
func (c *Config) Timeouts() orchestrator.Timeouts {
	t := orchestrator.Timeouts{Default: c.System.StageTimeout}
	for kind, a := range c.Agents {
		if a.Timeout > 0 {
			if t.PerStage == nil {
				t.PerStage = make(map[agent.Kind]time.Duration)
			}
			t.PerStage[kind] = a.Timeout
		}
	}
	return t
}

// Catalog returns the built-in templates plus the configured ones.
func (c *Config) Catalog() (*orchestrator.Catalog, error) {
	cat := orchestrator.NewCatalog()
	for _, t := range c.Templates {
		if err := cat.Add(t); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return cat, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
