package llm

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Detector decides which configured providers are usable. Hosted
// providers need an API key; Ollama must answer on its tags endpoint.
type Detector struct {
	httpClient   *http.Client
	probeTimeout time.Duration
	logger       *zap.Logger
}

// NewDetector creates a Detector with a short probe timeout.
func NewDetector(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		httpClient:   &http.Client{},
		probeTimeout: 2 * time.Second,
		logger:       logger,
	}
}

// Detect returns a generator for every usable provider. Providers that
// fail to build or probe are logged and skipped.
func (d *Detector) Detect(ctx context.Context, settings []ProviderSettings) []Generator {
	var (
		mu   sync.Mutex
		gens []Generator
		wg   sync.WaitGroup
	)
	for _, s := range settings {
		wg.Add(1)
		go func(s ProviderSettings) {
			defer wg.Done()
			if !d.usable(ctx, s) {
				return
			}
			g, err := NewOpenAIGenerator(s)
			if err != nil {
				d.logger.Warn("llm provider unavailable", zap.String("provider", s.Name), zap.Error(err))
				return
			}
			mu.Lock()
			gens = append(gens, g)
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	names := make([]string, 0, len(gens))
	for _, g := range gens {
		names = append(names, g.Name())
	}
	d.logger.Info("llm providers detected", zap.Strings("providers", names))
	return gens
}

func (d *Detector) usable(ctx context.Context, s ProviderSettings) bool {
	switch s.Name {
	case ProviderOllama:
		base := s.BaseURL
		if base == "" {
			base = OllamaBaseURL
		}
		return d.probeOllama(ctx, base)
	default:
		return s.APIKey != ""
	}
}

// probeOllama checks that an Ollama server answers within the probe
// timeout.
func (d *Detector) probeOllama(ctx context.Context, base string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("ollama probe panicked", zap.Any("panic", r))
			ok = false
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, strings.TrimSuffix(base, "/")+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
