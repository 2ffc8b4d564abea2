package orchestrator

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/dusk-indust/contentpipe/internal/agent"
)

// Built-in template names.
const (
	TemplateQuickPost           = "quick_post"
	TemplateContentCreationOnly = "content_creation_only"
	TemplateHumanizeExisting    = "humanize_existing"
	TemplateFullContentCreation = "full_content_creation"

	// DefaultTemplate is used when a workflow names no template or an
	// unknown one.
	DefaultTemplate = TemplateQuickPost
)

// Template is a named, ordered list of stages.
type Template struct {
	Name          string       `json:"name" yaml:"name"`
	DisplayName   string       `json:"display_name" yaml:"display_name"`
	Description   string       `json:"description" yaml:"description"`
	EstimatedTime string       `json:"estimated_time" yaml:"estimated_time"`
	Stages        []agent.Kind `json:"stages" yaml:"stages"`
}

// Includes reports whether the template runs the given stage.
func (t Template) Includes(kind agent.Kind) bool {
	return slices.Contains(t.Stages, kind)
}

func builtinTemplates() []Template {
	return []Template{
		{
			Name:          TemplateQuickPost,
			DisplayName:   "Quick Post",
			Description:   "Research, draft and humanize a short piece.",
			EstimatedTime: "2-3 minutes",
			Stages:        []agent.Kind{agent.KindResearch, agent.KindWriter, agent.KindHumanizer},
		},
		{
			Name:          TemplateContentCreationOnly,
			DisplayName:   "Content Creation Only",
			Description:   "Research, draft, humanize and copy-edit without publishing.",
			EstimatedTime: "3-5 minutes",
			Stages: []agent.Kind{
				agent.KindResearch, agent.KindWriter, agent.KindHumanizer, agent.KindEditor,
			},
		},
		{
			Name:          TemplateHumanizeExisting,
			DisplayName:   "Humanize Existing",
			Description:   "Polish supplied content: humanize, edit and optimize for search.",
			EstimatedTime: "1-2 minutes",
			Stages:        []agent.Kind{agent.KindHumanizer, agent.KindEditor, agent.KindSEO},
		},
		{
			Name:          TemplateFullContentCreation,
			DisplayName:   "Full Content Creation",
			Description:   "The complete pipeline from research to publication.",
			EstimatedTime: "5-8 minutes",
			Stages: []agent.Kind{
				agent.KindResearch, agent.KindWriter, agent.KindHumanizer,
				agent.KindEditor, agent.KindSEO, agent.KindPublisher,
			},
		},
	}
}

// Catalog holds the workflow templates a Manager can run. It is safe for
// concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewCatalog returns a catalog seeded with the built-in templates.
func NewCatalog() *Catalog {
	c := &Catalog{templates: make(map[string]Template)}
	for _, t := range builtinTemplates() {
		c.templates[t.Name] = t
	}
	return c
}

// Add installs t, replacing any template with the same name. Stage names
// are checked against the known kinds; unregistered but known kinds are
// fine and get skipped at run time.
func (c *Catalog) Add(t Template) error {
	if t.Name == "" {
		return fmt.Errorf("catalog: template name is required")
	}
	if len(t.Stages) == 0 {
		return fmt.Errorf("catalog: template %q has no stages", t.Name)
	}
	for _, k := range t.Stages {
		if !k.Valid() || k == agent.KindQA {
			return fmt.Errorf("catalog: template %q: invalid stage %q", t.Name, k)
		}
	}
	if t.DisplayName == "" {
		t.DisplayName = t.Name
	}
	t.Stages = slices.Clone(t.Stages)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[t.Name] = t
	return nil
}

// Lookup returns the template with the given name.
func (c *Catalog) Lookup(name string) (Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[name]
	if ok {
		t.Stages = slices.Clone(t.Stages)
	}
	return t, ok
}

// Resolve returns the named template, falling back to DefaultTemplate for
// unknown names.
func (c *Catalog) Resolve(name string) Template {
	if t, ok := c.Lookup(name); ok {
		return t
	}
	t, _ := c.Lookup(DefaultTemplate)
	return t
}

// Names returns the template names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Templates returns every template, sorted by name.
func (c *Catalog) Templates() []Template {
	names := c.Names()
	out := make([]Template, 0, len(names))
	for _, name := range names {
		if t, ok := c.Lookup(name); ok {
			out = append(out, t)
		}
	}
	return out
}
