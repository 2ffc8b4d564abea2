package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Compile-time check.
var _ Generator = (*TemplateGenerator)(nil)

// TemplateGenerator builds markdown from a fixed sentence bank. It ignores
// the prompt text and uses only the request hints, so it never fails and
// always produces the same output for the same request.
type TemplateGenerator struct{}

// NewTemplateGenerator creates a TemplateGenerator.
func NewTemplateGenerator() *TemplateGenerator { return &TemplateGenerator{} }

// Name returns "template".
func (*TemplateGenerator) Name() string { return ProviderTemplate }

// Generate returns a markdown document sized to req.WordCount.
func (t *TemplateGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = "this topic"
	}
	words := req.WordCount
	if words <= 0 {
		words = 800
	}

	switch req.ContentType {
	case "social_media", "social_post":
		return t.social(topic, req.Tone), nil
	case "article":
		return t.longform(topic, req.ContentType, words, req.Tone, articleSections), nil
	case "guide":
		return t.longform(topic, req.ContentType, words, req.Tone, guideSections), nil
	default:
		return t.longform(topic, req.ContentType, words, req.Tone, blogSections), nil
	}
}

// TitleFor returns the title the template generator would use.
func TitleFor(topic, contentType string) string {
	tc := TitleCase(topic)
	switch contentType {
	case "article":
		return tc + ": An In-Depth Analysis"
	case "guide":
		return "How to Master " + tc + ": A Step-by-Step Guide"
	case "social_media", "social_post":
		return tc + " in a Nutshell"
	case "listicle":
		return "7 Things You Should Know About " + tc
	case "newsletter":
		return "This Week: " + tc
	default:
		return "The Complete Guide to " + tc
	}
}

type sectionPlan struct {
	heading func(topic string) string
	context string
	weight  int
	list    bool
}

var blogSections = []sectionPlan{
	{func(string) string { return "Introduction" }, "the fundamentals", 2, false},
	{func(t string) string { return "Understanding " + TitleCase(t) }, "the core ideas", 2, false},
	{func(t string) string { return "Why " + TitleCase(t) + " Matters" }, "the benefits", 2, false},
	{func(string) string { return "Best Practices" }, "best practices", 1, true},
	{func(string) string { return "Conclusion" }, "the way forward", 1, false},
}

var articleSections = []sectionPlan{
	{func(string) string { return "Executive Summary" }, "the summary", 1, false},
	{func(string) string { return "Background" }, "the background", 2, false},
	{func(string) string { return "Analysis" }, "the analysis", 3, false},
	{func(string) string { return "Key Findings" }, "the findings", 1, true},
	{func(string) string { return "Implications" }, "the implications", 2, false},
	{func(string) string { return "Conclusion" }, "the conclusion", 1, false},
}

var guideSections = []sectionPlan{
	{func(string) string { return "Overview" }, "the overview", 2, false},
	{func(string) string { return "Getting Started" }, "the first steps", 2, false},
	{func(string) string { return "Step-by-Step" }, "each step", 1, true},
	{func(string) string { return "Tips and Pitfalls" }, "common pitfalls", 2, false},
	{func(string) string { return "Conclusion" }, "the next steps", 1, false},
}

var sentenceBank = []string{
	"When it comes to {topic}, understanding {context} is essential for success.",
	"Research shows that teams focusing on {topic} see measurable improvements in their results.",
	"However, the role of {context} is often underestimated.",
	"Industry experts recommend a strategic, step-by-step approach to {topic}.",
	"For example, small pilot projects make it easier to learn what actually works.",
	"Additionally, clear goals help everyone understand why {topic} deserves attention.",
	"The landscape of {topic} keeps evolving, which brings new opportunities and new challenges.",
	"Therefore, careful planning pays off long before the first results appear.",
	"Organizations that embrace {topic} often find themselves ahead of their competition.",
	"Moreover, {context} connects directly to broader goals across the business.",
	"Data-driven decisions have proven particularly effective here.",
	"Consequently, it helps to measure progress early and often.",
	"Collaboration matters too, since no single person owns every part of the work.",
	"Finally, the benefits of getting {context} right extend well beyond the immediate project.",
	"Furthermore, a careful analysis of {context} helps teams implement changes that last.",
	"Nevertheless, progress depends on consistent habits rather than one-off efforts.",
	"Although every organization is different, the core principles of {topic} stay the same.",
	"As a result, teams can leverage what they learn and optimize the next iteration.",
	"For instance, a short weekly review surfaces problems such as unclear ownership or missing data.",
	"Specifically, {context} rewards patience, whereas rushed changes rarely stick.",
	"Subsequently, successful teams scale the practices that work and retire the ones that do not.",
	"Ultimately, {topic} is a long-term investment, hence the need for steady commitment.",
	"Overall, a thoughtful approach turns {topic} from a buzzword into lasting value.",
}

var casualBank = []string{
	"You might be wondering where to start with {topic}.",
	"Honestly, it's simpler than it looks once you break it down.",
	"Let's look at what really makes a difference.",
}

var listBank = []string{
	"Set clear objectives for your {topic} initiatives",
	"Invest in training so the whole team can contribute",
	"Track progress with a small set of meaningful metrics",
	"Build feedback loops and adjust as you learn",
	"Use the right tools to remove repetitive work",
	"Share results with stakeholders early",
	"Stay informed about new trends and practices",
}

func (t *TemplateGenerator) longform(topic, contentType string, words int, tone string, plan []sectionPlan) string {
	totalWeight := 0
	for _, s := range plan {
		totalWeight += s.weight
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", TitleFor(topic, contentType))
	offset := 0
	for i, s := range plan {
		fmt.Fprintf(&b, "## %s\n\n", s.heading(topic))
		target := words * s.weight / totalWeight
		if s.list {
			b.WriteString(paragraph(topic, s.context, target/2, offset, tone == "casual" || tone == "conversational"))
			b.WriteString("\n\n")
			b.WriteString(bulletList(topic, 5))
		} else {
			// Split longer sections into two paragraphs.
			if target > 120 {
				b.WriteString(paragraph(topic, s.context, target/2, offset, false))
				b.WriteString("\n\n")
				offset += 5
				b.WriteString(paragraph(topic, s.context, target-target/2, offset, i == 0 && (tone == "casual" || tone == "conversational")))
			} else {
				b.WriteString(paragraph(topic, s.context, target, offset, false))
			}
		}
		b.WriteString("\n\n")
		offset += 3
	}
	fmt.Fprintf(&b, "Ready to learn more about %s? Share your experience in the comments and subscribe for more insights.\n", topic)
	return b.String()
}

func (t *TemplateGenerator) social(topic, tone string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Did you know that %s is changing how we work?\n\n", topic)
	b.WriteString(paragraph(topic, "the key idea", 40, 0, tone != "professional"))
	b.WriteString("\n\nWhat's your experience with it?\n\n")
	fmt.Fprintf(&b, "#%s #Innovation #Growth\n", hashtag(topic))
	return b.String()
}

// paragraph rotates through the sentence bank starting at offset until it
// has at least target words.
func paragraph(topic, context string, target, offset int, casual bool) string {
	if target < 20 {
		target = 20
	}
	var parts []string
	n := 0
	if casual {
		for _, s := range casualBank {
			line := fill(s, topic, context)
			parts = append(parts, line)
			n += len(strings.Fields(line))
		}
	}
	for i := 0; n < target && i < len(sentenceBank)*3; i++ {
		line := fill(sentenceBank[(offset+i)%len(sentenceBank)], topic, context)
		parts = append(parts, line)
		n += len(strings.Fields(line))
	}
	return strings.Join(parts, " ")
}

func bulletList(topic string, n int) string {
	lines := make([]string, 0, n)
	for i := 0; i < n && i < len(listBank); i++ {
		lines = append(lines, "- "+fill(listBank[i], topic, ""))
	}
	return strings.Join(lines, "\n")
}

func fill(s, topic, context string) string {
	return strings.NewReplacer("{topic}", topic, "{context}", context).Replace(s)
}

// TitleCase upper-cases the first letter of every word.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func hashtag(s string) string {
	var b strings.Builder
	for _, w := range strings.Fields(TitleCase(s)) {
		for _, r := range w {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
