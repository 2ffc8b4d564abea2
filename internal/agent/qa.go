package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/content"
)

// Names of the QA sub-checks, in the order they run.
const (
	CheckWordCount   = "word_count"
	CheckTone        = "tone"
	CheckPlatform    = "platform"
	CheckStructure   = "structure"
	CheckQuality     = "quality"
	CheckReadability = "readability"
)

// DefaultTargetWords is the word count QA judges against when the run did
// not ask for one.
const DefaultTargetWords = 500

type span struct{ lo, hi float64 }

// platformRules are the length, element and readability expectations for a
// publishing platform.
type platformRules struct {
	minWords     int
	maxWords     int
	ideal        span
	elements     []string
	hashtags     *span
	paragraphLen *span
	readability  span
}

var platforms = map[string]platformRules{
	"linkedin": {
		minWords: 300, maxWords: 3000, ideal: span{600, 1300},
		elements:     []string{"headline", "key_points", "call_to_action"},
		hashtags:     &span{3, 5},
		paragraphLen: &span{50, 150},
		readability:  span{50, 70},
	},
	"medium": {
		minWords: 500, maxWords: 5000, ideal: span{1000, 2500},
		elements:     []string{"introduction", "subheadings", "conclusion"},
		paragraphLen: &span{40, 120},
		readability:  span{50, 70},
	},
	"wordpress": {
		minWords: 300, maxWords: 10000, ideal: span{1000, 2000},
		elements:     []string{"title", "meta_description", "headings", "internal_links"},
		paragraphLen: &span{30, 100},
		readability:  span{60, 80},
	},
	"twitter": {
		minWords: 10, maxWords: 280, ideal: span{20, 50},
		elements:    []string{"hook", "hashtags"},
		hashtags:    &span{1, 3},
		readability: span{50, 70},
	},
	"facebook": {
		minWords: 50, maxWords: 500, ideal: span{80, 250},
		elements:    []string{"hook", "engagement_question"},
		readability: span{50, 70},
	},
	"default": {
		minWords: 200, maxWords: 5000, ideal: span{400, 1500},
		elements:     []string{"introduction", "body", "conclusion"},
		paragraphLen: &span{40, 120},
		readability:  span{50, 70},
	},
}

// Platforms lists the platforms QA has dedicated rules for.
func Platforms() []string {
	return []string{"linkedin", "medium", "wordpress", "twitter", "facebook"}
}

func rulesFor(platform string) platformRules {
	if r, ok := platforms[strings.ToLower(platform)]; ok {
		return r
	}
	return platforms["default"]
}

var elementPatterns = map[string]*regexp.Regexp{
	"headline":            regexp.MustCompile(`(?mi)^#\s+.+|^[A-Z][^.!?]*[.!?]$`),
	"title":               regexp.MustCompile(`(?mi)^#\s+.+`),
	"introduction":        regexp.MustCompile(`(?mi)^.{100,}`),
	"conclusion":          regexp.MustCompile(`(?mi).{50,}$`),
	"subheadings":         regexp.MustCompile(`(?mi)^#{2,3}\s+.+`),
	"headings":            regexp.MustCompile(`(?mi)^#{1,6}\s+.+`),
	"key_points":          regexp.MustCompile(`(?mi)[-•*]\s+.+|\d+\.\s+.+`),
	"call_to_action":      regexp.MustCompile(`(?i)(contact|subscribe|follow|share|comment|click|learn more|get started)`),
	"meta_description":    regexp.MustCompile(`(?i)(meta|description|summary)`),
	"internal_links":      regexp.MustCompile(`\[.+\]\(.+\)`),
	"hook":                regexp.MustCompile(`(?mi)^.{20,100}[.!?]`),
	"hashtags":            regexp.MustCompile(`#\w+`),
	"engagement_question": regexp.MustCompile(`\?`),
}

type toneWords struct{ positive, negative []string }

var toneIndicators = map[string]toneWords{
	"professional": {
		positive: []string{"furthermore", "consequently", "therefore", "analysis", "strategic",
			"implement", "optimize", "leverage", "facilitate", "stakeholder"},
		negative: []string{"gonna", "wanna", "stuff", "things", "cool", "awesome", "lol", "omg"},
	},
	"casual": {
		positive: []string{"you", "your", "let's", "check out", "awesome", "cool", "honestly"},
		negative: []string{"heretofore", "notwithstanding", "aforementioned"},
	},
	"conversational": {
		positive: []string{"you", "we", "i've", "you'll", "imagine", "think about", "ever wondered"},
		negative: []string{"one must", "it is evident that", "the author"},
	},
	"academic": {
		positive: []string{"research", "study", "findings", "methodology", "hypothesis", "analysis"},
		negative: []string{"basically", "kind of", "sort of", "stuff"},
	},
}

var transitionWords = []string{
	"additionally", "furthermore", "moreover", "also", "besides",
	"however", "nevertheless", "although", "but", "yet", "whereas",
	"therefore", "consequently", "thus", "hence", "as a result",
	"first", "second", "finally", "next", "then", "subsequently",
	"for example", "for instance", "specifically", "such as",
	"in conclusion", "to summarize", "overall", "ultimately",
}

var fillerPhrases = []string{
	"in order to", "the fact that", "it is important to note",
	"at the end of the day", "in today's world", "needless to say",
}

var hashtagRe = regexp.MustCompile(`#\w+`)

const (
	minParagraphs       = 3
	repetitionThreshold = 0.15
	transitionDensity   = 0.02
)

// QAAgent scores a draft against the run's requirements. It only judges:
// the regeneration decision belongs to the orchestrator's quality gate.
type QAAgent struct {
	*BaseAgent[QAInput, QAOutput]
}

// NewQAAgent creates a QA agent.
func NewQAAgent(logger *zap.Logger) *QAAgent {
	qa := &QAAgent{}
	card := Card{
		Name:        "qa",
		Kind:        KindQA,
		Description: "Validates content against word count, tone, platform and quality requirements.",
		Capabilities: []string{
			"word_count_validation", "tone_validation", "platform_optimization_check",
			"structure_validation", "quality_assessment", "readability_analysis",
			"improvement_recommendations", "regeneration_instructions", "multi_platform_support",
		},
	}
	qa.BaseAgent = NewBaseAgent[QAInput, QAOutput](card, qa.process,
		WithInputCheck[QAInput, QAOutput](func(in QAInput) error {
			if strings.TrimSpace(in.Content) == "" {
				return errors.New("no content to validate")
			}
			return nil
		}),
		WithBaseLogger[QAInput, QAOutput](orNop(logger)),
	)
	return qa
}

func (qa *QAAgent) process(ctx context.Context, in QAInput, _ Meta) (Outcome[QAOutput], error) {
	req := in.Requirements
	target := req.TargetWordCount
	if target <= 0 {
		target = DefaultTargetWords
	}
	platform := req.TargetPlatform
	if platform == "" {
		platform = "default"
	}
	tone := req.Tone
	if tone == "" {
		tone = content.DefaultTone
	}
	audience := req.TargetAudience
	if audience == "" {
		audience = "general"
	}
	rules := rulesFor(platform)

	// Element checks see the title as the document's H1.
	withTitle := in.Content
	if in.Title != "" && !strings.HasPrefix(strings.TrimSpace(in.Content), "# ") {
		withTitle = "# " + in.Title + "\n\n" + in.Content
	}

	checks := map[string]content.QACheck{
		CheckWordCount:   checkWordCount(in.Content, target, rules),
		CheckTone:        checkTone(in.Content, tone),
		CheckPlatform:    checkPlatform(withTitle, platform, rules),
		CheckStructure:   checkStructure(in.Content),
		CheckQuality:     checkQuality(in.Content),
		CheckReadability: checkReadability(in.Content, rules, audience),
	}
	if err := ctx.Err(); err != nil {
		return Outcome[QAOutput]{}, err
	}

	out := QAOutput{Checks: checks}
	var total float64
	lowest := math.Inf(1)
	for _, name := range CheckNames() {
		c := checks[name]
		total += c.Score
		lowest = math.Min(lowest, c.Score)
		if !c.Passed {
			out.ImprovementAreas = append(out.ImprovementAreas, name)
			out.Issues = append(out.Issues, c.Issues...)
			out.Recommendations = append(out.Recommendations, c.Recommendations...)
		}
	}
	out.OverallScore = math.Round(total/float64(len(checks))*10) / 10
	out.Passed = out.OverallScore >= 60 && lowest >= 40
	out.RegenerationPrompt = regenerationPrompt(out.Issues, out.Recommendations, target, platform, tone)

	critical := 0
	for _, issue := range out.Issues {
		if strings.Contains(strings.ToLower(issue), "critical") {
			critical++
		}
	}
	return Outcome[QAOutput]{
		Data:         out,
		QualityScore: Score(out.OverallScore / 100),
		Metadata: map[string]any{
			"total_issues":      len(out.Issues),
			"critical_issues":   critical,
			"word_count_actual": WordCount(in.Content),
			"word_count_target": target,
			"platform":          platform,
			"tone":              tone,
		},
	}, nil
}

// CheckNames lists the QA sub-checks in evaluation order.
func CheckNames() []string {
	return []string{CheckWordCount, CheckTone, CheckPlatform, CheckStructure, CheckQuality, CheckReadability}
}

func verdict(score float64, issues, recs []string) content.QACheck {
	return content.QACheck{
		Passed:          score >= 60,
		Score:           math.Round(score*10) / 10,
		Issues:          issues,
		Recommendations: recs,
	}
}

func checkWordCount(text string, target int, r platformRules) content.QACheck {
	n := float64(WordCount(text))
	lo, hi := float64(r.minWords), float64(r.maxWords)
	t := float64(target)
	var issues, recs []string
	var score float64

	switch {
	case n < lo:
		score = n / lo * 50
		issues = append(issues, fmt.Sprintf("CRITICAL: Content too short (%.0f words, minimum %d required)", n, r.minWords))
		recs = append(recs,
			fmt.Sprintf("Add %.0f more words to meet minimum requirement", lo-n),
			"Expand on key points with more detail and examples")
	case n < t*0.8:
		score = 50 + (n-lo)/(t*0.8-lo)*25
		issues = append(issues, fmt.Sprintf("Content below target (%.0f words, target %d)", n, target))
		recs = append(recs,
			fmt.Sprintf("Add approximately %.0f more words", t-n),
			"Include more examples, case studies, or elaboration")
	case n > hi:
		score = math.Max(30, 100-(n-hi)/hi*50)
		issues = append(issues, fmt.Sprintf("Content exceeds maximum (%.0f words, max %d)", n, r.maxWords))
		recs = append(recs, "Condense content and remove redundant sections")
	case n >= r.ideal.lo && n <= r.ideal.hi:
		score = 100
	case n < r.ideal.lo:
		score = 75 + (n-t*0.8)/(r.ideal.lo-t*0.8)*25
		issues = append(issues, fmt.Sprintf("Content slightly below ideal range (%.0f words)", n))
		recs = append(recs, fmt.Sprintf("Consider adding %.0f more words for optimal length", r.ideal.lo-n))
	case n < hi:
		score = 75 + (r.ideal.hi-n)/(hi-r.ideal.hi)*25
	default:
		score = 75
	}
	return verdict(score, issues, recs)
}

func checkTone(text, tone string) content.QACheck {
	words, ok := toneIndicators[tone]
	if !ok {
		words = toneIndicators[content.DefaultTone]
	}
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range words.positive {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range words.negative {
		if strings.Contains(lower, w) {
			neg++
		}
	}

	var issues, recs []string
	var score float64
	switch {
	case neg > 0:
		score = math.Max(30, 80-float64(neg)*15)
		issues = append(issues, fmt.Sprintf("Found %d words inconsistent with %s tone", neg, tone))
		recs = append(recs, fmt.Sprintf("Remove or replace informal/inappropriate words for %s tone", tone))
	case pos >= 5:
		score = math.Min(100, 70+float64(pos)*3)
	case pos >= 2:
		score = 60 + float64(pos)*5
	default:
		score = 50
		issues = append(issues, fmt.Sprintf("Content lacks %s tone indicators", tone))
		recs = append(recs, fmt.Sprintf("Add more %s language and expressions", tone))
	}
	return verdict(score, issues, recs)
}

// elementPresent reports whether a platform element appears in text. The
// body element is satisfied by at least two prose paragraphs.
func elementPresent(text, element string) bool {
	if element == "body" {
		return len(proseParagraphs(text)) >= 2
	}
	re, ok := elementPatterns[element]
	if !ok {
		return strings.Contains(strings.ToLower(text), strings.ToLower(element))
	}
	return re.MatchString(text)
}

func checkPlatform(text, platform string, r platformRules) content.QACheck {
	var issues, recs []string
	passed, total := 0, 0

	for _, el := range r.elements {
		total++
		if elementPresent(text, el) {
			passed++
			continue
		}
		issues = append(issues, fmt.Sprintf("Missing %s for %s optimization", el, platform))
		recs = append(recs, fmt.Sprintf("Add a %s section to optimize for %s", el, platform))
	}

	if h := r.hashtags; h != nil {
		total++
		n := float64(len(hashtagRe.FindAllString(text, -1)))
		switch {
		case n >= h.lo && n <= h.hi:
			passed++
		case n < h.lo:
			issues = append(issues, fmt.Sprintf("Too few hashtags (%.0f, need %.0f+)", n, h.lo))
			recs = append(recs, fmt.Sprintf("Add %.0f more relevant hashtags", h.lo-n))
		default:
			issues = append(issues, fmt.Sprintf("Too many hashtags (%.0f, max %.0f)", n, h.hi))
			recs = append(recs, fmt.Sprintf("Reduce hashtags to %.0f most relevant ones", h.hi))
		}
	}

	if pl := r.paragraphLen; pl != nil {
		total++
		if paras := Paragraphs(text); len(paras) > 0 {
			words := 0
			for _, p := range paras {
				words += WordCount(p)
			}
			avg := float64(words) / float64(len(paras))
			switch {
			case avg >= pl.lo && avg <= pl.hi:
				passed++
			case avg < pl.lo:
				issues = append(issues, fmt.Sprintf("Paragraphs too short for %s (avg %.0f words)", platform, avg))
				recs = append(recs, "Expand paragraphs with more detail")
			default:
				issues = append(issues, fmt.Sprintf("Paragraphs too long for %s (avg %.0f words)", platform, avg))
				recs = append(recs, "Break up long paragraphs for better readability")
			}
		}
	}

	return verdict(float64(passed)/float64(max(total, 1))*100, issues, recs)
}

func proseParagraphs(text string) []string {
	var out []string
	for _, p := range Paragraphs(text) {
		if !strings.HasPrefix(p, "#") {
			out = append(out, p)
		}
	}
	return out
}

func checkStructure(text string) content.QACheck {
	var issues, recs []string
	passed := 0
	paras := proseParagraphs(text)

	if len(paras) >= minParagraphs {
		passed++
	} else {
		issues = append(issues, fmt.Sprintf("Too few paragraphs (%d, need %d+)", len(paras), minParagraphs))
		recs = append(recs, "Break content into more distinct paragraphs")
	}
	if len(Headings(text)) >= 2 {
		passed++
	} else {
		issues = append(issues, "Insufficient headings for content structure")
		recs = append(recs, "Add more section headings (H2, H3) to improve structure")
	}
	if ListItems(text) >= 1 {
		passed++
	} else {
		issues = append(issues, "No bullet points or numbered lists found")
		recs = append(recs, "Add bullet points or numbered lists to improve scannability")
	}

	varied := true
	for _, p := range paras[:min(3, len(paras))] {
		sentences := Sentences(p)
		lengths := make(map[int]bool)
		for _, s := range sentences {
			lengths[WordCount(s)] = true
		}
		if float64(len(lengths)) < float64(len(sentences))*0.5 {
			varied = false
		}
	}
	if varied {
		passed++
	} else {
		issues = append(issues, "Limited sentence length variety")
		recs = append(recs, "Vary sentence lengths for better readability")
	}
	return verdict(float64(passed)/4*100, issues, recs)
}

func checkQuality(text string) content.QACheck {
	var issues, recs []string
	passed := 0
	lower := strings.ToLower(text)
	words := strings.Fields(lower)

	if len(words) > 50 {
		freq := make(map[string]int)
		top, topN := "", 0
		for _, w := range words {
			if len(w) <= 4 {
				continue
			}
			freq[w]++
			if freq[w] > topN {
				top, topN = w, freq[w]
			}
		}
		if float64(topN)/float64(len(words)) <= repetitionThreshold {
			passed++
		} else {
			issues = append(issues, fmt.Sprintf("High word repetition detected ('%s' repeated %d times)", top, topN))
			recs = append(recs, "Use synonyms and varied vocabulary to reduce repetition")
		}
	} else {
		passed++
	}

	transitions := 0
	for _, t := range transitionWords {
		if strings.Contains(lower, t) {
			transitions++
		}
	}
	if float64(transitions)/float64(max(len(words), 1)) >= transitionDensity {
		passed++
	} else {
		issues = append(issues, "Insufficient transition words for smooth flow")
		recs = append(recs, "Add transition words (however, therefore, additionally, etc.)")
	}

	fillers := 0
	for _, f := range fillerPhrases {
		if strings.Contains(lower, f) {
			fillers++
		}
	}
	if fillers <= 2 {
		passed++
	} else {
		issues = append(issues, fmt.Sprintf("Too many filler phrases (%d found)", fillers))
		recs = append(recs, "Remove unnecessary filler phrases for concise writing")
	}
	return verdict(float64(passed)/3*100, issues, recs)
}

func checkReadability(text string, r platformRules, audience string) content.QACheck {
	f := Flesch(text).ReadingEase
	target := r.readability
	a := strings.ToLower(audience)
	switch {
	case strings.Contains(a, "beginner") || strings.Contains(a, "general"):
		target = span{60, 80}
	case strings.Contains(a, "expert") || strings.Contains(a, "professional"):
		target = span{40, 60}
	}

	var issues, recs []string
	var score float64
	switch {
	case f >= target.lo && f <= target.hi:
		score = 100
	case f < target.lo:
		score = math.Max(40, 100-(target.lo-f)*2)
		issues = append(issues, fmt.Sprintf("Content too complex (Flesch score: %.1f, target: %.0f-%.0f)", f, target.lo, target.hi))
		recs = append(recs, "Simplify sentences and use shorter words", "Break up long sentences into shorter ones")
	default:
		score = math.Max(60, 100-(f-target.hi)*1.5)
		issues = append(issues, fmt.Sprintf("Content may be too simple for %s audience", audience))
		recs = append(recs, "Add more sophisticated vocabulary where appropriate")
	}
	return verdict(score, issues, recs)
}

// regenerationPrompt summarises the top issues and fixes for the next
// drafting attempt.
func regenerationPrompt(issues, recs []string, target int, platform, tone string) string {
	if len(issues) == 0 && len(recs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Regenerate content with the following requirements:\n")
	fmt.Fprintf(&b, "- Target word count: %d words\n", target)
	fmt.Fprintf(&b, "- Platform: %s\n", platform)
	fmt.Fprintf(&b, "- Tone: %s\n", tone)
	b.WriteString("\nIssues to address:\n")
	for _, s := range issues[:min(5, len(issues))] {
		fmt.Fprintf(&b, "  - %s\n", s)
	}
	b.WriteString("\nImprovements needed:\n")
	for _, s := range recs[:min(5, len(recs))] {
		fmt.Fprintf(&b, "  - %s\n", s)
	}
	return b.String()
}
