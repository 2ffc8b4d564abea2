package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/contentpipe/internal/agent"
	"github.com/dusk-indust/contentpipe/internal/content"
)

func baseDoc() content.Document {
	return content.Document{
		Topic:        "t",
		Title:        "Draft",
		Content:      "Draft body.",
		ResearchData: &content.ResearchData{Topic: "t"},
	}
}

func TestMerge_OwnedFieldsOnly(t *testing.T) {
	tests := []struct {
		kind agent.Kind
		data agent.Output
		want []content.Field
	}{
		{agent.KindResearch, agent.ResearchOutput{ResearchData: content.ResearchData{Topic: "new"}}, []content.Field{content.FieldResearch}},
		{agent.KindWriter, agent.WriterOutput{Title: "New", Content: "New body."}, []content.Field{content.FieldDraft, content.FieldOutline}},
		{agent.KindHumanizer, agent.HumanizerOutput{Content: "Human body."}, []content.Field{content.FieldDraft, content.FieldHumanization}},
		{agent.KindEditor, agent.EditorOutput{EditedContent: "Edited.", GrammarScore: 95}, []content.Field{content.FieldDraft, content.FieldEditing}},
		{agent.KindSEO, agent.SEOOutput{SEO: content.SEO{Title: "SEO", URLSlug: "seo"}}, []content.Field{content.FieldSEO}},
		{agent.KindPublisher, agent.PublisherOutput{Publication: content.Publication{ID: "p1"}}, []content.Field{content.FieldPublication}},
		{agent.KindQA, agent.QAOutput{OverallScore: 80}, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			before := baseDoc()
			after, err := Merge(tt.kind, before, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, content.Diff(before, after))
			assert.Equal(t, baseDoc(), before)
		})
	}
}

func TestMerge_EmptyTitleKeepsExisting(t *testing.T) {
	after, err := Merge(agent.KindHumanizer, baseDoc(), agent.HumanizerOutput{Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Draft", after.Title)

	after, err = Merge(agent.KindEditor, baseDoc(), agent.EditorOutput{EditedContent: "x", EditedTitle: "Edited Title"})
	require.NoError(t, err)
	assert.Equal(t, "Edited Title", after.Title)
}

func TestMerge_SEONeverTouchesContent(t *testing.T) {
	after, err := Merge(agent.KindSEO, baseDoc(), agent.SEOOutput{SEO: content.SEO{OptimizedContent: "Optimised body."}})
	require.NoError(t, err)
	assert.Equal(t, "Draft body.", after.Content)
	assert.Equal(t, "Optimised body.", after.SEO.OptimizedContent)
}

func TestMerge_Rejects(t *testing.T) {
	_, err := Merge(agent.KindWriter, baseDoc(), nil)
	assert.EqualError(t, err, "merge: writer stage returned no data")

	_, err = Merge(agent.KindWriter, baseDoc(), agent.EditorOutput{EditedContent: "x"})
	assert.EqualError(t, err, "merge: writer stage returned editor output")
}

func TestProject(t *testing.T) {
	doc := content.Document{
		Topic:          "t",
		Content:        "Body",
		Title:          "Title",
		TargetPlatform: "medium",
		TargetKeywords: []string{"k"},
		SEO: &content.SEO{
			Title:            "SEO Title",
			OptimizedContent: "SEO body",
			URLSlug:          "seo-title",
		},
	}

	in, ok := Project(agent.KindResearch, doc)
	require.True(t, ok)
	assert.Equal(t, agent.ResearchInput{Topic: "t", Depth: "moderate"}, in)

	in, _ = Project(agent.KindEditor, doc)
	assert.Equal(t, "default", in.(agent.EditorInput).StyleGuide)

	in, _ = Project(agent.KindSEO, doc)
	assert.Equal(t, []string{"k"}, in.(agent.SEOInput).Keywords)

	in, _ = Project(agent.KindPublisher, doc)
	pub := in.(agent.PublisherInput)
	assert.Equal(t, "SEO body", pub.Content)
	assert.Equal(t, "SEO Title", pub.Title)
	assert.Equal(t, "seo-title", pub.Slug)
	assert.Equal(t, "medium", pub.Platform)

	in, _ = Project(agent.KindQA, doc)
	assert.Equal(t, "professional", in.(agent.QAInput).Requirements.Tone)

	_, ok = Project("translator", doc)
	assert.False(t, ok)
}

func TestWorkflowState_LogOrderAndOverwrite(t *testing.T) {
	s := NewWorkflowState("wf")
	s.BeginAttempt()
	s.Record(agent.KindResearch, agent.Result{Status: agent.StatusSuccess, Agent: "r1"})
	s.Record(agent.KindWriter, agent.Result{Status: agent.StatusSuccess, Agent: "w1"})
	s.BeginAttempt()
	s.Record(agent.KindResearch, agent.Result{Status: agent.StatusSuccess, Agent: "r2"})
	s.AddError("writer", "boom")

	log := s.ExecutionLog()
	require.Len(t, log, 2)
	assert.Equal(t, agent.KindResearch, log[0].Stage)
	assert.Equal(t, "r2", log[0].Result.Agent)
	assert.Equal(t, "w1", log[1].Result.Agent)

	errs := s.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Attempt)

	sum := s.Summary()
	assert.Equal(t, "wf", sum.WorkflowID)
	assert.Equal(t, "research", sum.CurrentStage)
	assert.Equal(t, []agent.Kind{agent.KindResearch, agent.KindWriter}, sum.AgentsExecuted)
	assert.Equal(t, 1, sum.ErrorCount)
	assert.Equal(t, 2, sum.Attempts)
	assert.False(t, sum.HasFinalOutput)

	s.SetFinal(content.Document{})
	assert.True(t, s.Summary().HasFinalOutput)
}
