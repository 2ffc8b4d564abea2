package agent

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/content"
	"github.com/dusk-indust/contentpipe/internal/llm"
)

// contentTemplate describes the default shape of one content type.
type contentTemplate struct {
	sections  []string
	minWords  int
	maxTokens int
}

var contentTemplates = map[string]contentTemplate{
	"blog_post":    {[]string{"introduction", "main_content", "conclusion"}, 800, 3000},
	"article":      {[]string{"abstract", "introduction", "body", "conclusion", "references"}, 1200, 4000},
	"social_media": {[]string{"hook", "content", "call_to_action"}, 50, 400},
	"social_post":  {[]string{"hook", "content", "call_to_action"}, 50, 400},
	"guide":        {[]string{"overview", "steps", "tips", "conclusion"}, 1000, 4000},
	"newsletter":   {[]string{"introduction", "highlights", "conclusion"}, 600, 2500},
	"listicle":     {[]string{"introduction", "items", "conclusion"}, 900, 3000},
}

// ContentTypes lists the content types the writer has a section plan for.
func ContentTypes() []string {
	return slices.Sorted(maps.Keys(contentTemplates))
}

// WriterAgent drafts content from research through a text generator.
type WriterAgent struct {
	*BaseAgent[WriterInput, WriterOutput]
	gen    llm.Generator
	logger *zap.Logger
}

// NewWriterAgent creates a writer that drafts through gen.
func NewWriterAgent(gen llm.Generator, logger *zap.Logger) *WriterAgent {
	if gen == nil {
		gen = llm.NewTemplateGenerator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	wa := &WriterAgent{gen: gen, logger: logger}
	card := Card{
		Name:        "writer",
		Kind:        KindWriter,
		Description: "Drafts structured markdown content from research.",
		Capabilities: []string{
			"content_planning", "markdown_generation", "llm_generation",
			"template_generation", "meta_description", "feedback_regeneration",
		},
	}
	wa.BaseAgent = NewBaseAgent[WriterInput, WriterOutput](card, wa.process,
		WithInputCheck[WriterInput, WriterOutput](func(in WriterInput) error {
			if len(in.Research.Sources) == 0 && in.Research.Summary == "" {
				return errors.New("no research data provided for content generation")
			}
			return nil
		}),
		WithBaseLogger[WriterInput, WriterOutput](logger),
	)
	return wa
}

func (wa *WriterAgent) process(ctx context.Context, in WriterInput, meta Meta) (Outcome[WriterOutput], error) {
	ct := in.ContentType
	tmpl, ok := contentTemplates[ct]
	if !ok {
		ct = "blog_post"
		tmpl = contentTemplates[ct]
	}
	topic := in.Topic
	if topic == "" {
		topic = in.Research.Topic
	}
	target := in.WordCount
	if target <= 0 {
		target = tmpl.minWords
	}

	req := llm.Request{
		System:      "You are an experienced content writer. Reply with markdown only, starting with a single '# ' title line.",
		Prompt:      buildWriterPrompt(topic, ct, target, in),
		MaxTokens:   max(tmpl.maxTokens, target*2),
		Temperature: 0.7,
		Topic:       topic,
		ContentType: ct,
		Tone:        in.Tone,
		WordCount:   target,
	}
	text, err := wa.gen.Generate(ctx, req)
	if err != nil {
		return Outcome[WriterOutput]{}, fmt.Errorf("content generation failed: %w", err)
	}

	title, body := splitTitle(text)
	if title == "" {
		title = llm.TitleFor(topic, ct)
	}
	words, sentences, paragraphs, headings, avg := Metrics(body)
	out := WriterOutput{
		Title:           title,
		Content:         body,
		MetaDescription: metaDescription(body, topic),
		Structure:       planStructure(tmpl, target),
		Metrics:         contentMetrics(words, sentences, paragraphs, headings, avg),
	}

	wa.logger.Debug("draft generated",
		zap.String("workflow_id", meta.WorkflowID),
		zap.String("generator", wa.gen.Name()),
		zap.Int("words", words),
	)
	return Outcome[WriterOutput]{
		Data:         out,
		QualityScore: Score(draftQuality(words, tmpl.minWords, headings)),
		Metadata: map[string]any{
			"word_count":     words,
			"reading_time":   out.Metrics.ReadingTime,
			"template_used":  ct,
			"generator":      wa.gen.Name(),
			"regeneration":   in.Feedback != nil,
			"target_words":   target,
			"sections_count": len(out.Structure.Sections),
		},
	}, nil
}

func buildWriterPrompt(topic, contentType string, target int, in WriterInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s about %q.\n", strings.ReplaceAll(contentType, "_", " "), topic)
	fmt.Fprintf(&b, "Target length: about %d words.\n", target)
	if in.TargetAudience != "" {
		fmt.Fprintf(&b, "Audience: %s.\n", in.TargetAudience)
	}
	if in.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", strings.ReplaceAll(in.Tone, "_", " "))
	}
	b.WriteString("Use ## section headings, at least one bulleted list, and a short conclusion.\n")

	if in.Research.Summary != "" {
		fmt.Fprintf(&b, "\nResearch summary:\n%s\n", in.Research.Summary)
	}
	if len(in.Research.KeyPoints) > 0 {
		b.WriteString("\nKey points:\n")
		for _, p := range in.Research.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	if len(in.Research.Statistics) > 0 {
		b.WriteString("\nStatistics:\n")
		for _, s := range in.Research.Statistics {
			fmt.Fprintf(&b, "- %s (%s)\n", s.Value, s.Source)
		}
	}

	if fb := in.Feedback; fb != nil {
		fmt.Fprintf(&b, "\nA previous draft scored %.0f/100 in review. Fix these problems:\n", fb.PreviousScore)
		for _, a := range fb.ImprovementAreas {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		for _, r := range fb.Recommendations {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	return b.String()
}

var titleLineRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// splitTitle extracts the first level-one heading as the title and
// removes it from the body.
func splitTitle(md string) (title, body string) {
	md = strings.TrimSpace(md)
	loc := titleLineRe.FindStringSubmatchIndex(md)
	if loc == nil {
		return "", md
	}
	title = strings.TrimSpace(md[loc[2]:loc[3]])
	body = strings.TrimSpace(md[:loc[0]] + md[loc[1]:])
	return title, body
}

// metaDescription takes the first prose paragraph, trimmed to 160 chars.
func metaDescription(body, topic string) string {
	for _, p := range Paragraphs(body) {
		if strings.HasPrefix(p, "#") || strings.HasPrefix(p, "-") {
			continue
		}
		return Truncate(strings.Join(strings.Fields(PlainText(p)), " "), 160, "...")
	}
	return Truncate(fmt.Sprintf("Learn about %s: key insights and practical advice.", topic), 160, "...")
}

func planStructure(tmpl contentTemplate, target int) content.Structure {
	per := target / max(len(tmpl.sections), 1)
	s := content.Structure{EstimatedWords: target}
	for _, name := range tmpl.sections {
		s.Sections = append(s.Sections, content.Section{
			Type:  name,
			Title: llm.TitleCase(strings.ReplaceAll(name, "_", " ")),
			Words: per,
		})
	}
	return s
}

func contentMetrics(words, sentences, paragraphs, headings int, avg float64) content.ContentMetrics {
	return content.ContentMetrics{
		WordCount:         words,
		SentenceCount:     sentences,
		ParagraphCount:    paragraphs,
		HeadingCount:      headings,
		ReadingTime:       int(math.Ceil(float64(words) / 200)),
		AvgSentenceLength: math.Round(avg*10) / 10,
	}
}

func draftQuality(words, minWords, headings int) float64 {
	score := 0.5
	if words >= minWords {
		score += 0.3
	} else if minWords > 0 {
		score += 0.3 * float64(words) / float64(minWords)
	}
	if headings >= 2 {
		score += 0.2
	}
	return score
}
