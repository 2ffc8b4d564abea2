package llm

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Compile-time check.
var _ Generator = (*Manager)(nil)

// Manager routes generation requests to the best available provider and
// falls back to the template generator when a provider fails. It is built
// once and shared; it holds no per-run state.
type Manager struct {
	providers map[string]Generator
	fallback  *TemplateGenerator
	logger    *zap.Logger
}

// NewManager creates a Manager over the given generators. The template
// generator is always added.
func NewManager(logger *zap.Logger, gens ...Generator) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		providers: make(map[string]Generator, len(gens)+1),
		fallback:  NewTemplateGenerator(),
		logger:    logger,
	}
	for _, g := range gens {
		if g != nil {
			m.providers[g.Name()] = g
		}
	}
	m.providers[ProviderTemplate] = m.fallback
	return m
}

// Name returns the name of the provider Generate would try first.
func (m *Manager) Name() string {
	return m.Best().Name()
}

// Available lists the configured providers in priority order. Providers
// outside the known set rank after the known ones but before the template.
func (m *Manager) Available() []string {
	var names []string
	for _, p := range Priority {
		if _, ok := m.providers[p]; ok && p != ProviderTemplate {
			names = append(names, p)
		}
	}
	var extra []string
	for name := range m.providers {
		if !slices.Contains(Priority, name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	names = append(names, extra...)
	return append(names, ProviderTemplate)
}

// Status reports, for every known provider, whether it is configured.
func (m *Manager) Status() map[string]bool {
	st := make(map[string]bool, len(Priority))
	for _, p := range Priority {
		_, ok := m.providers[p]
		st[p] = ok
	}
	return st
}

// HasModel reports whether any provider other than the template is
// configured.
func (m *Manager) HasModel() bool {
	return len(m.providers) > 1
}

// Best returns the highest-priority configured provider.
func (m *Manager) Best() Generator {
	if names := m.Available(); len(names) > 0 {
		return m.providers[names[0]]
	}
	return m.fallback
}

// Generate runs req on the best provider, falling back to the template
// generator on error. It only fails if the context is done.
func (m *Manager) Generate(ctx context.Context, req Request) (string, error) {
	return m.GenerateWith(ctx, "", req)
}

// GenerateWith runs req on the named provider, or on the best provider if
// name is empty, falling back to the template generator on error.
func (m *Manager) GenerateWith(ctx context.Context, name string, req Request) (string, error) {
	g := m.Best()
	if name != "" {
		p, ok := m.providers[name]
		if !ok {
			return "", fmt.Errorf("llm: provider %q not configured", name)
		}
		g = p
	}

	text, err := g.Generate(ctx, req)
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	m.logger.Warn("generation failed, using template fallback",
		zap.String("provider", g.Name()),
		zap.Error(err),
	)
	return m.fallback.Generate(ctx, req)
}
