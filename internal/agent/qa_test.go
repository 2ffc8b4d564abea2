package agent

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/contentpipe/internal/content"
	"github.com/dusk-indust/contentpipe/internal/llm"
)

func TestQAAgent_EmptyContent(t *testing.T) {
	res := NewQAAgent(nil).Execute(context.Background(), QAInput{Content: "  "}, Meta{})
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.ErrorMessage, "no content to validate")
}

func TestQAAgent_ShortContentFails(t *testing.T) {
	res := NewQAAgent(nil).Execute(context.Background(), QAInput{Content: "Too short."}, Meta{})
	require.True(t, res.OK(), res.ErrorMessage)

	out := res.Data.(QAOutput)
	assert.False(t, out.Passed)
	assert.Less(t, out.Checks[CheckWordCount].Score, 40.0)
	assert.Contains(t, out.ImprovementAreas, CheckWordCount)
	assert.True(t, strings.HasPrefix(out.Issues[0], "CRITICAL: Content too short"))
	assert.Contains(t, out.RegenerationPrompt, "Target word count: 500 words")
	assert.Equal(t, 500, res.Metadata["word_count_target"])
}

func TestQAAgent_ScoresTemplateDraft(t *testing.T) {
	draft, err := llm.NewTemplateGenerator().Generate(context.Background(), llm.Request{Topic: "remote work", WordCount: 800})
	require.NoError(t, err)

	res := NewQAAgent(nil).Execute(context.Background(), QAInput{
		Content:      draft,
		Requirements: content.Requirements{TargetWordCount: 800, Tone: "professional"},
	}, Meta{})
	require.True(t, res.OK(), res.ErrorMessage)

	out := res.Data.(QAOutput)
	require.Len(t, out.Checks, len(CheckNames()))

	var sum float64
	lowest := math.Inf(1)
	for _, name := range CheckNames() {
		c := out.Checks[name]
		assert.GreaterOrEqual(t, c.Score, 0.0, name)
		assert.LessOrEqual(t, c.Score, 100.0, name)
		sum += c.Score
		lowest = math.Min(lowest, c.Score)
	}
	assert.InDelta(t, sum/6, out.OverallScore, 0.1)
	assert.Equal(t, out.OverallScore >= 60 && lowest >= 40, out.Passed)
	assert.Equal(t, 100.0, out.Checks[CheckWordCount].Score)
	require.NotNil(t, res.QualityScore)
	assert.InDelta(t, out.OverallScore/100, *res.QualityScore, 1e-9)
}

func TestCheckWordCount(t *testing.T) {
	rules := rulesFor("")
	words := func(n int) string { return strings.Repeat("word ", n) }

	tests := []struct {
		name   string
		n      int
		target int
		score  float64
		pass   bool
	}{
		{"below minimum", 100, 500, 25, false},
		{"below target", 350, 500, 68.8, true},
		{"ideal", 1000, 500, 100, true},
		{"above ideal", 3250, 500, 62.5, true},
		{"above maximum", 7500, 500, 75, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := checkWordCount(words(tt.n), tt.target, rules)
			assert.InDelta(t, tt.score, c.Score, 0.05)
			assert.Equal(t, tt.pass, c.Passed)
		})
	}
}

func TestCheckTone(t *testing.T) {
	assert.Equal(t, 50.0, checkTone("gonna do stuff", "professional").Score)
	assert.Equal(t, 75.0, checkTone("Furthermore, the analysis is done; therefore we ship.", "professional").Score)

	c := checkTone("Plain words only.", "academic")
	assert.Equal(t, 50.0, c.Score)
	assert.Equal(t, []string{"Content lacks academic tone indicators"}, c.Issues)

	// Unknown tones are judged as professional.
	assert.Equal(t, 35.0, checkTone("cool stuff lol", "whimsical").Score)
}

func TestCheckPlatform(t *testing.T) {
	c := checkPlatform("Big news today for everyone here! #Go", "twitter", rulesFor("twitter"))
	assert.Equal(t, 100.0, c.Score)

	c = checkPlatform("Nothing to see", "twitter", rulesFor("twitter"))
	assert.Equal(t, 0.0, c.Score)
	assert.Contains(t, c.Issues, "Missing hashtags for twitter optimization")
	assert.Contains(t, c.Issues, "Too few hashtags (0, need 1+)")
}

func TestCheckStructure(t *testing.T) {
	c := checkStructure("Just one line.")
	// Only the sentence variety check passes.
	assert.Equal(t, 25.0, c.Score)
	assert.False(t, c.Passed)
	assert.Len(t, c.Issues, 3)
}

func TestCheckQuality_FillerPhrases(t *testing.T) {
	text := "In order to win, the fact that it is important to note needless to say matters. However, therefore."
	c := checkQuality(text)
	assert.Contains(t, c.Issues, "Too many filler phrases (4 found)")
}

func TestCheckReadability_AudienceTarget(t *testing.T) {
	simple := "The cat sat. The dog ran. We had fun."
	general := checkReadability(simple, rulesFor(""), "general")
	expert := checkReadability(simple, rulesFor(""), "expert")
	assert.Greater(t, general.Score, 0.0)
	assert.GreaterOrEqual(t, expert.Score, 60.0)
	assert.Contains(t, expert.Issues[0], "too simple for expert audience")
}

func TestRegenerationPrompt_TopFive(t *testing.T) {
	issues := []string{"i1", "i2", "i3", "i4", "i5", "i6"}
	p := regenerationPrompt(issues, []string{"r1"}, 800, "medium", "casual")
	assert.Contains(t, p, "- Platform: medium")
	assert.Contains(t, p, "  - i5")
	assert.NotContains(t, p, "i6")
	assert.Empty(t, regenerationPrompt(nil, nil, 800, "medium", "casual"))
}
