package agent

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

type rewriteRule struct {
	re   *regexp.Regexp
	repl string
}

func rule(pattern, repl string) rewriteRule {
	return rewriteRule{re: regexp.MustCompile(pattern), repl: repl}
}

var grammarRules = []rewriteRule{
	rule(`(?i)\bit's own\b`, "its own"),
	rule(`(?i)\byour welcome\b`, "you're welcome"),
	rule(`(?i)\bloose weight\b`, "lose weight"),
	rule(`(?i)\baffect on\b`, "effect on"),
	rule(`\balot\b`, "a lot"),
	rule(`\bdefinately\b`, "definitely"),
	rule(`\bseperate\b`, "separate"),
	rule(`\boccured\b`, "occurred"),
	rule(`\brecieve\b`, "receive"),
	rule(`\bthe the\b`, "the"),
	rule(`\ba a\b`, "a"),
	rule(` +,`, ","),
	rule(`([^\n]) {2,}`, "$1 "),
}

var styleRules = []rewriteRule{
	rule(`(?i)\bin order to\b`, "to"),
	rule(`(?i)\bat this point in time\b`, "now"),
	rule(`(?i)\bdue to the fact that\b`, "because"),
	rule(`(?i)\bin spite of the fact that\b`, "although"),
	rule(`(?i)\bit should be noted that\s+`, ""),
	rule(`(?i)\bit is important to note that\s+`, ""),
	rule(`(?i)\bneedless to say,?\s+`, ""),
	rule(`(?i)\bvery unique\b`, "unique"),
	rule(`(?i)\bquite interesting\b`, "interesting"),
	rule(`(?i)\bpretty much\s+`, ""),
}

var (
	sentenceStartRe = regexp.MustCompile(`([.!?]\s+)([a-z])`)
	percentSignRe   = regexp.MustCompile(`(\d)%`)
	smallTitleWords = map[string]bool{
		"a": true, "an": true, "the": true, "and": true, "but": true, "or": true,
		"for": true, "nor": true, "on": true, "at": true, "to": true, "by": true,
		"of": true, "in": true, "with": true,
	}
)

// EditorAgent copy-edits a draft: grammar fixes, wordy phrases, sentence
// capitalisation and title casing.
type EditorAgent struct {
	*BaseAgent[EditorInput, EditorOutput]
}

// NewEditorAgent creates an editor.
func NewEditorAgent(logger *zap.Logger) *EditorAgent {
	ea := &EditorAgent{}
	card := Card{
		Name:        "editor",
		Kind:        KindEditor,
		Description: "Copy-edits content for grammar, concision and consistency.",
		Capabilities: []string{
			"grammar_correction", "style_improvement", "capitalization",
			"title_casing", "style_guides", "editing_report",
		},
	}
	ea.BaseAgent = NewBaseAgent[EditorInput, EditorOutput](card, ea.process,
		WithBaseLogger[EditorInput, EditorOutput](orNop(logger)),
	)
	return ea
}

func (ea *EditorAgent) process(ctx context.Context, in EditorInput, _ Meta) (Outcome[EditorOutput], error) {
	text := in.Content
	var notes []string

	text, grammar := applyRules(text, grammarRules)
	if grammar > 0 {
		notes = append(notes, fmt.Sprintf("Fixed %d grammar and spelling issues", grammar))
	}
	text, style := applyRules(text, styleRules)
	if style > 0 {
		notes = append(notes, fmt.Sprintf("Tightened %d wordy phrases", style))
	}
	caps := len(sentenceStartRe.FindAllString(text, -1))
	if caps > 0 {
		text = sentenceStartRe.ReplaceAllStringFunc(text, func(m string) string {
			return m[:len(m)-1] + strings.ToUpper(m[len(m)-1:])
		})
		notes = append(notes, fmt.Sprintf("Capitalised %d sentence starts", caps))
	}
	if strings.EqualFold(in.StyleGuide, "ap") {
		if percentSignRe.MatchString(text) {
			text = percentSignRe.ReplaceAllString(text, "$1 percent")
			notes = append(notes, "Applied AP style to percentages")
		}
	}
	if err := ctx.Err(); err != nil {
		return Outcome[EditorOutput]{}, err
	}

	title := editTitle(in.Title)
	if title != in.Title {
		notes = append(notes, "Normalised title casing")
	}
	if len(notes) == 0 {
		notes = append(notes, "No edits required")
	}

	score := grammarScore(text)
	return Outcome[EditorOutput]{
		Data: EditorOutput{
			EditedContent: strings.TrimSpace(text),
			EditedTitle:   title,
			Notes:         notes,
			GrammarScore:  score,
		},
		QualityScore: Score(score / 100),
		Metadata: map[string]any{
			"grammar_fixes": grammar,
			"style_fixes":   style,
			"style_guide":   in.StyleGuide,
		},
	}, nil
}

// applyRules runs every rule over the text and returns the total number of
// matches rewritten.
func applyRules(text string, rules []rewriteRule) (string, int) {
	n := 0
	for _, r := range rules {
		n += len(r.re.FindAllStringIndex(text, -1))
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text, n
}

func editTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	words := strings.Fields(title)
	for i, w := range words {
		lower := strings.ToLower(w)
		if i > 0 && smallTitleWords[lower] {
			words[i] = lower
			continue
		}
		// Leave acronyms and mixed-case words alone.
		if w == lower {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// grammarScore penalises remaining rule matches and overly long sentences.
func grammarScore(text string) float64 {
	issues := 0
	for _, r := range grammarRules {
		issues += len(r.re.FindAllStringIndex(text, -1))
	}
	long := 0
	for _, s := range Sentences(PlainText(text)) {
		if WordCount(s) > 35 {
			long++
		}
	}
	score := 100 - float64(issues)*5 - float64(long)*2
	return math.Max(score, 0)
}
