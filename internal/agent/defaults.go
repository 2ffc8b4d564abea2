package agent

import (
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/llm"
)

// Dependencies are the collaborators the stock agents are built from.
// Every field is optional.
type Dependencies struct {
	Generator llm.Generator
	// Backends replace the default research backends when non-empty.
	Backends  []SourceBackend
	SEO       SEOSettings
	Publisher PublisherSettings
	Logger    *zap.Logger
}

// DefaultBackends returns the research backends used when none are
// configured: Wikipedia plus the offline briefing backend serving both
// "web" and "local".
func DefaultBackends() []SourceBackend {
	return []SourceBackend{
		NewWikipediaBackend("", 10*time.Second),
		NewLocalBackend("web"),
		NewLocalBackend("local"),
	}
}

// NewDefaultRegistry registers the stock agent for every stage. The
// publisher is only registered when enabled, so templates naming it skip
// the stage otherwise.
func NewDefaultRegistry(deps Dependencies) *Registry {
	logger := orNop(deps.Logger)
	backends := deps.Backends
	if len(backends) == 0 {
		backends = DefaultBackends()
	}

	reg := NewRegistry()
	agents := map[Kind]Agent{
		KindResearch:  NewResearchAgent(logger.Named("research"), backends...),
		KindWriter:    NewWriterAgent(deps.Generator, logger.Named("writer")),
		KindHumanizer: NewHumanizerAgent(logger.Named("humanizer")),
		KindEditor:    NewEditorAgent(logger.Named("editor")),
		KindSEO:       NewSEOAgent(deps.SEO, logger.Named("seo")),
		KindQA:        NewQAAgent(logger.Named("qa")),
	}
	if deps.Publisher.Enabled {
		agents[KindPublisher] = NewPublisherAgent(deps.Publisher, logger.Named("publisher"))
	}
	for kind, ag := range agents {
		// Every kind here is valid and every agent non-nil.
		_ = reg.Register(kind, ag)
	}
	return reg
}
