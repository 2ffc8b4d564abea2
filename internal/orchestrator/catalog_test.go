package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/contentpipe/internal/agent"
)

func TestCatalog_Builtins(t *testing.T) {
	c := NewCatalog()
	assert.Equal(t, []string{
		TemplateContentCreationOnly, TemplateFullContentCreation,
		TemplateHumanizeExisting, TemplateQuickPost,
	}, c.Names())

	tests := map[string][]agent.Kind{
		TemplateQuickPost:           {"research", "writer", "humanizer"},
		TemplateContentCreationOnly: {"research", "writer", "humanizer", "editor"},
		TemplateHumanizeExisting:    {"humanizer", "editor", "seo"},
		TemplateFullContentCreation: {"research", "writer", "humanizer", "editor", "seo", "publisher"},
	}
	for name, stages := range tests {
		tmpl, ok := c.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, stages, tmpl.Stages, name)
		assert.NotEmpty(t, tmpl.DisplayName)
		assert.NotEmpty(t, tmpl.EstimatedTime)
	}
}

func TestCatalog_ResolveFallsBack(t *testing.T) {
	c := NewCatalog()
	assert.Equal(t, TemplateHumanizeExisting, c.Resolve(TemplateHumanizeExisting).Name)
	assert.Equal(t, TemplateQuickPost, c.Resolve("nope").Name)
	assert.Equal(t, TemplateQuickPost, c.Resolve("").Name)
}

func TestCatalog_Add(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add(Template{
		Name:   "seo_refresh",
		Stages: []agent.Kind{agent.KindEditor, agent.KindSEO},
	}))
	tmpl, ok := c.Lookup("seo_refresh")
	require.True(t, ok)
	assert.Equal(t, "seo_refresh", tmpl.DisplayName)
	assert.True(t, tmpl.Includes(agent.KindSEO))
	assert.False(t, tmpl.Includes(agent.KindPublisher))

	assert.Error(t, c.Add(Template{Stages: []agent.Kind{agent.KindSEO}}))
	assert.Error(t, c.Add(Template{Name: "empty"}))
	assert.Error(t, c.Add(Template{Name: "bad", Stages: []agent.Kind{"translator"}}))
	assert.Error(t, c.Add(Template{Name: "gated", Stages: []agent.Kind{agent.KindQA}}))
}

func TestCatalog_LookupReturnsCopy(t *testing.T) {
	c := NewCatalog()
	tmpl, _ := c.Lookup(TemplateQuickPost)
	tmpl.Stages[0] = agent.KindSEO

	again, _ := c.Lookup(TemplateQuickPost)
	assert.Equal(t, agent.KindResearch, again.Stages[0])
}
