package agent

import (
	"context"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/content"
)

var contractions = []struct{ from, to string }{
	{"do not", "don't"},
	{"does not", "doesn't"},
	{"is not", "isn't"},
	{"are not", "aren't"},
	{"cannot", "can't"},
	{"will not", "won't"},
	{"it is", "it's"},
	{"you are", "you're"},
	{"we are", "we're"},
	{"that is", "that's"},
	{"there is", "there's"},
	{"you will", "you'll"},
}

var plainWords = []struct{ from, to string }{
	{"utilize", "use"},
	{"utilizes", "uses"},
	{"commence", "start"},
	{"approximately", "about"},
	{"individuals", "people"},
	{"numerous", "many"},
	{"facilitate", "help"},
	{"endeavor", "try"},
	{"purchase", "buy"},
	{"sufficient", "enough"},
}

var (
	contractionRes = compileWordPairs(contractions)
	plainWordRes   = compileWordPairs(plainWords)
	longSplitRe    = regexp.MustCompile(`,\s+(and|but|which)\s+`)
	pronounRe      = regexp.MustCompile(`(?i)\b(you|your|we|our|i|my)\b`)
	contractionRe  = regexp.MustCompile(`\b\w+'(t|s|re|ll|ve|d)\b`)
)

func compileWordPairs(pairs []struct{ from, to string }) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(pairs))
	for i, p := range pairs {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p.from) + `\b`)
	}
	return out
}

// HumanizerAgent rewrites a draft to read less mechanically: contractions,
// plainer words, shorter sentences and a direct opening.
type HumanizerAgent struct {
	*BaseAgent[HumanizerInput, HumanizerOutput]
}

// NewHumanizerAgent creates a humanizer.
func NewHumanizerAgent(logger *zap.Logger) *HumanizerAgent {
	ha := &HumanizerAgent{}
	card := Card{
		Name:        "humanizer",
		Kind:        KindHumanizer,
		Description: "Makes drafted content sound natural and conversational.",
		Capabilities: []string{
			"contractions", "plain_language", "sentence_variation",
			"conversational_openers", "human_score",
		},
	}
	ha.BaseAgent = NewBaseAgent[HumanizerInput, HumanizerOutput](card, ha.process,
		WithBaseLogger[HumanizerInput, HumanizerOutput](orNop(logger)),
	)
	return ha
}

func (ha *HumanizerAgent) process(ctx context.Context, in HumanizerInput, _ Meta) (Outcome[HumanizerOutput], error) {
	before := humanScore(in.Content)

	var techniques []string
	text := in.Content
	if out, n := replacePairs(text, contractionRes, contractions); n > 0 {
		text = out
		techniques = append(techniques, "contractions")
	}
	if out, n := replacePairs(text, plainWordRes, plainWords); n > 0 {
		text = out
		techniques = append(techniques, "plain_language")
	}
	if out, n := splitLongSentences(text, 28); n > 0 {
		text = out
		techniques = append(techniques, "sentence_variation")
	}
	if in.ContentType != "social_media" && in.ContentType != "social_post" {
		if out, ok := addOpener(text, in.Title); ok {
			text = out
			techniques = append(techniques, "conversational_opener")
		}
	}
	if err := ctx.Err(); err != nil {
		return Outcome[HumanizerOutput]{}, err
	}

	title, _ := replacePairs(in.Title, plainWordRes, plainWords)
	after := humanScore(text)
	return Outcome[HumanizerOutput]{
		Data: HumanizerOutput{
			Content: text,
			Title:   title,
			Metrics: content.HumanizationMetrics{
				OriginalScore: before,
				ImprovedScore: after,
				Improvement:   math.Round((after-before)*10) / 10,
				Techniques:    techniques,
			},
		},
		QualityScore: Score(after / 100),
		Metadata:     map[string]any{"techniques_applied": len(techniques)},
	}, nil
}

// replacePairs applies each pattern outside headings, preserving the case
// of the first letter. It returns the number of replacements made.
func replacePairs(text string, res []*regexp.Regexp, pairs []struct{ from, to string }) (string, int) {
	n := 0
	lines := strings.Split(text, "\n")
	for li, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		for i, re := range res {
			to := pairs[i].to
			line = re.ReplaceAllStringFunc(line, func(m string) string {
				n++
				if m != "" && m[0] >= 'A' && m[0] <= 'Z' {
					return strings.ToUpper(to[:1]) + to[1:]
				}
				return to
			})
		}
		lines[li] = line
	}
	return strings.Join(lines, "\n"), n
}

// splitLongSentences breaks prose sentences longer than limit words at
// their first coordinating comma.
func splitLongSentences(text string, limit int) (string, int) {
	n := 0
	paras := strings.Split(text, "\n\n")
	for pi, p := range paras {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "-") {
			continue
		}
		sentences := Sentences(p)
		changed := false
		for si, s := range sentences {
			if WordCount(s) <= limit {
				continue
			}
			loc := longSplitRe.FindStringSubmatchIndex(s)
			if loc == nil {
				continue
			}
			conj := s[loc[2]:loc[3]]
			rest := strings.TrimSpace(s[loc[1]:])
			if rest == "" {
				continue
			}
			lead := strings.ToUpper(conj[:1]) + conj[1:]
			if conj == "which" {
				lead = "This"
			}
			sentences[si] = s[:loc[0]] + ". " + lead + " " + rest
			changed = true
			n++
		}
		if changed {
			paras[pi] = strings.Join(sentences, " ")
		}
	}
	return strings.Join(paras, "\n\n"), n
}

// addOpener puts a direct question in front of the first prose paragraph
// when the draft never addresses the reader.
func addOpener(text, title string) (string, bool) {
	if pronounRe.MatchString(text) || title == "" {
		return text, false
	}
	paras := strings.Split(text, "\n\n")
	for i, p := range paras {
		t := strings.TrimSpace(p)
		if t == "" || strings.HasPrefix(t, "#") || strings.HasPrefix(t, "-") {
			continue
		}
		paras[i] = "Ever wondered what " + strings.ToLower(strings.TrimRight(title, ".!?")) + " could mean for you? " + t
		return strings.Join(paras, "\n\n"), true
	}
	return text, false
}

// humanScore rates how conversational text reads, 0-100.
func humanScore(text string) float64 {
	words := WordCount(text)
	if words == 0 {
		return 0
	}
	sentences := Sentences(PlainText(text))
	score := 40.0

	score += math.Min(float64(len(contractionRe.FindAllString(text, -1)))/float64(words)*1000, 20)
	score += math.Min(float64(len(pronounRe.FindAllString(text, -1)))/float64(words)*500, 20)
	if strings.Contains(text, "?") {
		score += 5
	}

	// Reward varied sentence length.
	if len(sentences) > 1 {
		mean := 0.0
		for _, s := range sentences {
			mean += float64(WordCount(s))
		}
		mean /= float64(len(sentences))
		variance := 0.0
		for _, s := range sentences {
			d := float64(WordCount(s)) - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(len(sentences)))
		score += math.Min(sd, 15)
	}
	return math.Round(clamp(score, 0, 100)*10) / 10
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
