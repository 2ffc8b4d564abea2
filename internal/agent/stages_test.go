package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizerAgent(t *testing.T) {
	ag := NewHumanizerAgent(nil)
	in := HumanizerInput{
		Content: "## Tools\n\nIt is important. We do not utilize numerous tools.",
		Title:   "Team Tools",
	}

	res := ag.Execute(context.Background(), in, Meta{})
	require.True(t, res.OK(), res.ErrorMessage)

	out := res.Data.(HumanizerOutput)
	assert.Equal(t, "## Tools\n\nIt's important. We don't use many tools.", out.Content)
	assert.Equal(t, "Team Tools", out.Title)
	assert.Equal(t, []string{"contractions", "plain_language"}, out.Metrics.Techniques)
	assert.GreaterOrEqual(t, out.Metrics.ImprovedScore, out.Metrics.OriginalScore)
}

func TestHumanizerAgent_AddsOpener(t *testing.T) {
	res := NewHumanizerAgent(nil).Execute(context.Background(), HumanizerInput{
		Content: "## Intro\n\nSolar panels convert light into electricity.",
		Title:   "Solar Power Basics",
	}, Meta{})
	require.True(t, res.OK(), res.ErrorMessage)
	out := res.Data.(HumanizerOutput)
	assert.Contains(t, out.Content, "Ever wondered what solar power basics could mean for you? Solar panels")
	assert.Contains(t, out.Metrics.Techniques, "conversational_opener")
}

func TestHumanizerAgent_SplitsLongSentences(t *testing.T) {
	long := "The team reviewed every single part of the onboarding process over several long weeks, " +
		"and they found that most new hires struggled with the same three confusing steps at the very start."
	got, n := splitLongSentences(long, 28)
	assert.Equal(t, 1, n)
	assert.Contains(t, got, "weeks. And they found")
}

func TestEditorAgent(t *testing.T) {
	ag := NewEditorAgent(nil)
	res := ag.Execute(context.Background(), EditorInput{
		Content: "this is alot of  text. it occured here.",
		Title:   "the future of work",
	}, Meta{})
	require.True(t, res.OK(), res.ErrorMessage)

	out := res.Data.(EditorOutput)
	assert.Equal(t, "this is a lot of text. It occurred here.", out.EditedContent)
	assert.Equal(t, "The Future of Work", out.EditedTitle)
	assert.Contains(t, out.Notes, "Fixed 3 grammar and spelling issues")
	assert.Contains(t, out.Notes, "Capitalised 1 sentence starts")
	assert.Contains(t, out.Notes, "Normalised title casing")
	assert.Equal(t, 100.0, out.GrammarScore)
}

func TestEditorAgent_StyleRulesAndAP(t *testing.T) {
	res := NewEditorAgent(nil).Execute(context.Background(), EditorInput{
		Content:    "We grew 40% in order to compete.",
		Title:      "Growth",
		StyleGuide: "AP",
	}, Meta{})
	require.True(t, res.OK(), res.ErrorMessage)
	out := res.Data.(EditorOutput)
	assert.Equal(t, "We grew 40 percent to compete.", out.EditedContent)
	assert.Contains(t, out.Notes, "Tightened 1 wordy phrases")
	assert.Contains(t, out.Notes, "Applied AP style to percentages")
}

func TestEditorAgent_NoEdits(t *testing.T) {
	res := NewEditorAgent(nil).Execute(context.Background(), EditorInput{Content: "Clean text.", Title: "Clean"}, Meta{})
	require.True(t, res.OK(), res.ErrorMessage)
	assert.Equal(t, []string{"No edits required"}, res.Data.(EditorOutput).Notes)
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello, World! Go_lang", "hello-world-go-lang"},
		{"  --Remote   Work--  ", "remote-work"},
		{"", "article"},
		{"!!!", "article"},
		{
			"one two three four five six seven eight nine ten eleven twelve thirteen",
			"one-two-three-four-five-six-seven-eight",
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	kws := ExtractKeywords("Machine learning helps teams. Machine learning models need data. Teams adopt machine learning quickly.", "")
	require.NotEmpty(t, kws)
	assert.Equal(t, "machine learning", kws[0])
	assert.Contains(t, kws, "learning")
	assert.LessOrEqual(t, len(kws), 10)
}

func TestSEOAgent(t *testing.T) {
	body := "## Why Remote Work Matters\n\nRemote work gives teams focus and flexibility. " +
		"Companies that adopt remote work report better retention.\n\n" +
		"## Getting Started\n\n- Pick the right tools\n- Set clear goals\n\n" +
		"## Conclusion\n\nStart small and learn as you go."
	ag := NewSEOAgent(SEOSettings{}, nil)

	res := ag.Execute(context.Background(), SEOInput{
		Content:      body,
		Title:        "Remote Work Guide",
		FocusKeyword: "remote work",
	}, Meta{})
	require.True(t, res.OK(), res.ErrorMessage)

	out := res.Data.(SEOOutput)
	assert.True(t, strings.HasPrefix(out.OptimizedContent, "# Remote Work Guide\n\n## Why Remote Work Matters"))
	assert.Equal(t, "Remote Work Guide", out.Title)
	assert.Equal(t, "remote-work-guide", out.URLSlug)
	assert.Equal(t, "remote work", out.Keywords[0])
	assert.Contains(t, strings.ToLower(out.MetaDescription), "remote work")
	assert.LessOrEqual(t, len(out.MetaDescription), maxMetaLen)
	assert.Greater(t, out.Score, 0.0)
	assert.LessOrEqual(t, out.Score, 100.0)
	assert.NotEmpty(t, out.Recommendations)
}

func TestSEOAgent_GeneratesTitleFromKeyword(t *testing.T) {
	res := NewSEOAgent(SEOSettings{}, nil).Execute(context.Background(), SEOInput{
		Content:  "Some content about composting at home.",
		Keywords: []string{"composting"},
	}, Meta{})
	require.True(t, res.OK(), res.ErrorMessage)
	out := res.Data.(SEOOutput)
	assert.Equal(t, "Complete Guide to Composting", out.Title)
	assert.Contains(t, out.Recommendations, "Generated SEO-optimized title")
}

func TestSEOScores(t *testing.T) {
	sa := NewSEOAgent(SEOSettings{}, nil)
	assert.Equal(t, 0.0, sa.densityScore(0))
	assert.InDelta(t, 100.0, sa.densityScore(1.5), 1e-9)
	assert.InDelta(t, 25.0, sa.densityScore(0.375), 1e-9)
	assert.Equal(t, 50.0, sa.lengthScore(300))
	assert.Equal(t, 100.0, sa.lengthScore(2000))

	assert.Equal(t, 0.0, titleScore("", "x"))
	// Length, early keyword, capped power words and no brackets add up past 100.
	assert.Equal(t, 100.0, titleScore("Remote Work: The Complete Practical Guide", "remote work"))
	assert.Equal(t, 0.0, metaScore("", "x"))
}

func TestPublisherAgent(t *testing.T) {
	dir := t.TempDir()
	ag := NewPublisherAgent(PublisherSettings{Enabled: true, OutputDir: dir}, nil)

	res := ag.Execute(context.Background(), PublisherInput{
		Title:   "Hello World",
		Content: "Some **bold** text.",
	}, Meta{WorkflowID: "wf"})
	require.True(t, res.OK(), res.ErrorMessage)

	out := res.Data.(PublisherOutput)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "published", out.Status)
	assert.True(t, strings.HasPrefix(out.URL, "file://"))
	assert.True(t, strings.HasSuffix(out.URL, "hello-world.html"))

	page, err := os.ReadFile(filepath.Join(dir, "hello-world.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Hello World</title>")
	assert.Contains(t, string(page), "<strong>bold</strong>")

	src, err := os.ReadFile(filepath.Join(dir, "hello-world.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(src), "# Hello World\n\n"))
}

func TestPublisherAgent_Schedule(t *testing.T) {
	ag := NewPublisherAgent(PublisherSettings{Enabled: true, OutputDir: t.TempDir(), BaseURL: "https://blog.example.com/"}, nil)
	when := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	res := ag.Execute(context.Background(), PublisherInput{
		Title: "Later", Content: "Soon.", Slug: "later-post", ScheduleTime: when,
	}, Meta{})
	require.True(t, res.OK(), res.ErrorMessage)
	out := res.Data.(PublisherOutput)
	assert.Equal(t, "scheduled", out.Status)
	assert.Equal(t, when, out.ScheduledTime)
	assert.Equal(t, "https://blog.example.com/later-post", out.URL)

	res = ag.Execute(context.Background(), PublisherInput{Title: "Bad", Content: "x", ScheduleTime: "tomorrow"}, Meta{})
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.ErrorMessage, "invalid schedule_time")
}

func TestPublisherAgent_RequiresOutputDir(t *testing.T) {
	res := NewPublisherAgent(PublisherSettings{}, nil).Execute(context.Background(), PublisherInput{Title: "t", Content: "c"}, Meta{})
	assert.Equal(t, StatusError, res.Status)
}
