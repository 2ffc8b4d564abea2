package agent

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/content"
	"github.com/dusk-indust/contentpipe/internal/llm"
)

// SEOSettings tunes the SEO stage's scoring.
type SEOSettings struct {
	// KeywordDensity is the target focus keyword density in percent.
	KeywordDensity float64 `yaml:"keyword_density" validate:"gte=0,lte=10"`
	MinWords       int     `yaml:"min_words" validate:"gte=0"`
	IdealWords     int     `yaml:"ideal_words" validate:"gtefield=MinWords"`
}

// DefaultSEOSettings returns the stock scoring targets.
func DefaultSEOSettings() SEOSettings {
	return SEOSettings{KeywordDensity: 1.5, MinWords: 300, IdealWords: 1500}
}

const (
	maxTitleLen = 60
	maxMetaLen  = 160
	minMetaLen  = 120
)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "for": true, "from": true, "has": true, "he": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "that": true, "the": true, "to": true,
	"was": true, "will": true, "with": true, "would": true, "you": true, "your": true,
	"have": true, "had": true, "but": true, "not": true, "or": true, "this": true,
	"they": true, "we": true, "can": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "shall": true, "do": true, "does": true, "did": true,
	"get": true, "got": true, "more": true, "than": true, "about": true, "what": true,
}

var powerWords = map[string]bool{
	"guide": true, "complete": true, "ultimate": true, "best": true, "top": true,
	"essential": true, "proven": true, "effective": true, "powerful": true,
	"comprehensive": true, "detailed": true, "step-by-step": true, "easy": true,
	"simple": true, "quick": true, "practical": true, "beginner": true,
	"advanced": true, "professional": true, "expert": true,
}

var ctaWords = []string{"learn", "discover", "find out", "get", "download", "read"}

var (
	keywordWordRe = regexp.MustCompile(`\b[a-z]{3,}\b`)
	nonWordRe     = regexp.MustCompile(`[^a-z0-9\s'-]+`)
	slugSpaceRe   = regexp.MustCompile(`[\s_]+`)
	slugStripRe   = regexp.MustCompile(`[^a-z0-9\-]`)
	slugDashRe    = regexp.MustCompile(`-+`)
	h1Re          = regexp.MustCompile(`(?m)^# `)
	h2Re          = regexp.MustCompile(`(?m)^## `)
	h3Re          = regexp.MustCompile(`(?m)^### `)
)

// SEOAgent optimises a draft for search. It never rewrites the canonical
// content: the optimised body travels in its own field.
type SEOAgent struct {
	*BaseAgent[SEOInput, SEOOutput]
	settings SEOSettings
}

// NewSEOAgent creates an SEO agent. Zero settings fall back to
// DefaultSEOSettings.
func NewSEOAgent(settings SEOSettings, logger *zap.Logger) *SEOAgent {
	if settings == (SEOSettings{}) {
		settings = DefaultSEOSettings()
	}
	sa := &SEOAgent{settings: settings}
	card := Card{
		Name:        "seo",
		Kind:        KindSEO,
		Description: "Optimises titles, meta descriptions and structure for search engines.",
		Capabilities: []string{
			"keyword_extraction", "keyword_density_analysis", "title_optimization",
			"meta_description_optimization", "heading_optimization", "url_slug_generation",
			"internal_linking_suggestions", "readability_analysis", "seo_scoring",
		},
	}
	sa.BaseAgent = NewBaseAgent[SEOInput, SEOOutput](card, sa.process,
		WithBaseLogger[SEOInput, SEOOutput](orNop(logger)),
	)
	return sa
}

// seoAnalysis is the per-dimension score breakdown.
type seoAnalysis struct {
	Words        int     `json:"word_count"`
	Length       float64 `json:"content_length_score"`
	Density      float64 `json:"keyword_density"`
	DensityScore float64 `json:"keyword_density_score"`
	Title        float64 `json:"title_score"`
	Meta         float64 `json:"meta_score"`
	Structure    float64 `json:"structure_score"`
	Readability  float64 `json:"readability_score"`
	Overall      float64 `json:"overall_score"`
}

func (sa *SEOAgent) process(ctx context.Context, in SEOInput, _ Meta) (Outcome[SEOOutput], error) {
	keywords := slices.Clone(in.Keywords)
	focus := in.FocusKeyword
	switch {
	case focus == "" && len(keywords) == 0:
		extracted := ExtractKeywords(in.Content, in.Title)
		keywords = extracted[:min(5, len(extracted))]
		if len(extracted) > 0 {
			focus = extracted[0]
		}
	case focus == "":
		focus = keywords[0]
	}

	var recs []string
	title, r := sa.optimizeTitle(in.Title, focus)
	recs = append(recs, r...)
	meta, r := optimizeMeta(in.MetaDescription, in.Content, focus)
	recs = append(recs, r...)
	body, r := optimizeHeadings(in.Content, title)
	recs = append(recs, r...)
	recs = append(recs, sa.densityAdvice(body, focus)...)
	if err := ctx.Err(); err != nil {
		return Outcome[SEOOutput]{}, err
	}

	a := sa.analyze(body, title, meta, focus)
	if a.Structure < 70 {
		recs = append(recs, "Enhance content structure with more headings, lists and paragraphs")
	}
	if a.Readability < 60 {
		recs = append(recs, "Improve readability by simplifying language and sentence structure")
	}

	if focus != "" && !containsFold(keywords, focus) {
		keywords = append([]string{focus}, keywords...)
	}
	return Outcome[SEOOutput]{
		Data: SEOOutput{SEO: content.SEO{
			OptimizedContent: body,
			Title:            title,
			MetaDescription:  meta,
			URLSlug:          Slug(title),
			Keywords:         keywords,
			Score:            a.Overall,
			Recommendations:  recs,
		}},
		QualityScore: Score(a.Overall / 100),
		Metadata: map[string]any{
			"focus_keyword":        focus,
			"analysis":             a,
			"recommendations":      len(recs),
			"internal_link_ideas":  internalLinks(body, keywords),
			"content_length_label": sa.lengthLabel(a.Words),
		},
	}, nil
}

// ExtractKeywords proposes up to ten keywords for a text: repeated
// multi-word phrases first, then frequent long single words.
func ExtractKeywords(text, title string) []string {
	lower := strings.ToLower(title + " " + text)
	tokens := strings.Fields(nonWordRe.ReplaceAllString(PlainText(lower), " "))

	phrases := newCounter()
	for i := range tokens {
		if i+1 < len(tokens) && noStopWords(tokens[i:i+2]) {
			if p := tokens[i] + " " + tokens[i+1]; len(p) > 6 {
				phrases.add(p)
			}
		}
		if i+2 < len(tokens) && noStopWords(tokens[i:i+3]) {
			if p := strings.Join(tokens[i:i+3], " "); len(p) > 10 {
				phrases.add(p)
			}
		}
	}
	words := newCounter()
	for _, w := range keywordWordRe.FindAllString(lower, -1) {
		if !stopWords[w] {
			words.add(w)
		}
	}

	var out []string
	for _, p := range phrases.top(10) {
		if phrases.n[p] >= 2 {
			out = append(out, p)
		}
	}
	for _, w := range words.top(20) {
		if len(w) > 4 && words.n[w] >= 3 {
			out = append(out, w)
		}
	}
	return out[:min(10, len(out))]
}

func noStopWords(ws []string) bool {
	for _, w := range ws {
		if stopWords[w] {
			return false
		}
	}
	return true
}

// counter counts strings and ranks them by frequency, ties broken by
// first appearance.
type counter struct {
	n     map[string]int
	order []string
}

func newCounter() *counter { return &counter{n: make(map[string]int)} }

func (c *counter) add(s string) {
	if c.n[s] == 0 {
		c.order = append(c.order, s)
	}
	c.n[s]++
}

func (c *counter) top(k int) []string {
	out := slices.Clone(c.order)
	slices.SortStableFunc(out, func(a, b string) int { return c.n[b] - c.n[a] })
	return out[:min(k, len(out))]
}

func (sa *SEOAgent) optimizeTitle(title, focus string) (string, []string) {
	var recs []string
	if strings.TrimSpace(title) == "" {
		if focus != "" {
			title = "Complete Guide to " + llm.TitleCase(focus)
		} else {
			title = "Comprehensive Guide"
		}
		recs = append(recs, "Generated SEO-optimized title")
	}
	if len(title) > maxTitleLen {
		title = Truncate(title, maxTitleLen, "...")
		recs = append(recs, fmt.Sprintf("Shortened title to %d characters", len(title)))
	}
	if focus != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(focus)) {
		if withKw := title + ": " + llm.TitleCase(focus); len(withKw) <= maxTitleLen {
			title = withKw
			recs = append(recs, fmt.Sprintf("Added focus keyword '%s' to title", focus))
		} else {
			recs = append(recs, fmt.Sprintf("Include the focus keyword '%s' in the title", focus))
		}
	}
	return title, recs
}

func optimizeMeta(meta, body, focus string) (string, []string) {
	var recs []string
	sentences := Sentences(strings.Join(strings.Fields(PlainText(stripHeadings(body))), " "))
	if strings.TrimSpace(meta) == "" && len(sentences) > 0 {
		meta = Truncate(strings.Join(sentences[:min(2, len(sentences))], " "), 150, "...")
		recs = append(recs, "Generated meta description from content")
	}
	switch {
	case len(meta) > maxMetaLen:
		meta = Truncate(meta, maxMetaLen, "...")
		recs = append(recs, fmt.Sprintf("Shortened meta description to %d characters", len(meta)))
	case len(meta) < minMetaLen:
		for _, s := range sentences {
			if strings.Contains(meta, s) {
				continue
			}
			if len(meta)+1+len(s) <= maxMetaLen {
				meta = strings.TrimSpace(meta + " " + s)
				recs = append(recs, "Extended meta description for better length")
			}
			break
		}
	}
	if focus != "" && !strings.Contains(strings.ToLower(meta), strings.ToLower(focus)) {
		meta = Truncate("Learn about "+focus+". "+meta, maxMetaLen, "...")
		recs = append(recs, fmt.Sprintf("Added focus keyword '%s' to meta description", focus))
	}
	if meta != "" && !strings.HasSuffix(meta, ".") && !strings.HasSuffix(meta, "!") && !strings.HasSuffix(meta, "?") {
		meta += "."
	}
	return meta, recs
}

// optimizeHeadings makes sure the body has exactly one H1 carrying the
// title, demoting any extra H1s.
func optimizeHeadings(body, title string) (string, []string) {
	var recs []string
	lines := strings.Split(body, "\n")
	h1 := false
	h2 := 0
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "# "):
			if h1 {
				lines[i] = "#" + line
				recs = append(recs, "Converted duplicate H1 to H2")
				h2++
			}
			h1 = true
		case strings.HasPrefix(line, "## "):
			h2++
		}
	}
	out := strings.Join(lines, "\n")
	if !h1 && title != "" {
		out = "# " + title + "\n\n" + out
		recs = append(recs, "Added H1 heading with the title")
	}
	if h2 < 2 {
		recs = append(recs, "Consider adding more H2 headings for better structure")
	}
	return out, recs
}

func (sa *SEOAgent) densityAdvice(body, focus string) []string {
	if focus == "" {
		return []string{"No focus keyword identified; consider choosing one"}
	}
	d := keywordDensity(body, focus)
	target := sa.settings.KeywordDensity
	switch {
	case d < target*0.5:
		return []string{fmt.Sprintf("Increase focus keyword density from %.1f%% towards %.1f%%", d, target)}
	case d > target*2:
		return []string{fmt.Sprintf("Keyword density (%.1f%%) may be too high; consider reducing", d)}
	}
	return nil
}

func keywordDensity(body, keyword string) float64 {
	words := WordCount(body)
	if words == 0 || keyword == "" {
		return 0
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	return float64(len(re.FindAllStringIndex(body, -1))) / float64(words) * 100
}

func (sa *SEOAgent) analyze(body, title, meta, focus string) seoAnalysis {
	a := seoAnalysis{Words: WordCount(body)}
	a.Length = sa.lengthScore(a.Words)
	a.DensityScore = 50
	if focus != "" {
		a.Density = keywordDensity(body, focus)
		a.DensityScore = sa.densityScore(a.Density)
	}
	a.Title = titleScore(title, focus)
	a.Meta = metaScore(meta, focus)
	a.Structure = structureScore(body)
	a.Readability = Flesch(body).ReadingEase

	total := a.Length + a.DensityScore + a.Title + a.Meta + a.Structure + math.Min(a.Readability, 100)
	a.Overall = math.Round(total/6*10) / 10
	return a
}

func (sa *SEOAgent) lengthScore(words int) float64 {
	lo, ideal := float64(sa.settings.MinWords), float64(sa.settings.IdealWords)
	w := float64(words)
	switch {
	case w < lo:
		return w / lo * 50
	case w >= ideal:
		return 100
	default:
		return 50 + (w-lo)/(ideal-lo)*50
	}
}

func (sa *SEOAgent) lengthLabel(words int) string {
	switch {
	case words < sa.settings.MinWords:
		return "Too short - consider expanding"
	case words < sa.settings.IdealWords:
		return "Good length - could be expanded"
	case words < 3000:
		return "Excellent length for SEO"
	default:
		return "Very comprehensive - ensure it stays focused"
	}
}

func (sa *SEOAgent) densityScore(d float64) float64 {
	t := sa.settings.KeywordDensity
	switch {
	case d == 0:
		return 0
	case d >= t*0.5 && d <= t*2:
		return 100 - math.Abs(d-t)*10
	case d < t*0.5:
		return d / (t * 0.5) * 50
	default:
		return math.Max(0, 100-(d-t*2)*20)
	}
}

func titleScore(title, focus string) float64 {
	if title == "" {
		return 0
	}
	n := float64(len(title))
	var score float64
	switch {
	case n >= 30 && n <= maxTitleLen:
		score += 30
	case n < 30:
		score += n / 30 * 20
	default:
		score += math.Max(0, 30-(n-maxTitleLen)*2)
	}
	lower := strings.ToLower(title)
	if focus != "" {
		if pos := strings.Index(lower, strings.ToLower(focus)); pos >= 0 {
			score += 40
			if float64(pos) < n*0.5 {
				score += 10
			}
		}
	}
	power := 0
	for _, w := range strings.Fields(lower) {
		if powerWords[strings.Trim(w, ":,.!?")] {
			power++
		}
	}
	score += math.Min(float64(power*10), 20)
	if !strings.ContainsAny(title, "()[]{}") {
		score += 10
	}
	return math.Min(score, 100)
}

func metaScore(meta, focus string) float64 {
	if meta == "" {
		return 0
	}
	n := float64(len(meta))
	var score float64
	switch {
	case n >= minMetaLen && n <= maxMetaLen:
		score += 40
	case n < minMetaLen:
		score += n / minMetaLen * 30
	default:
		score += math.Max(0, 40-(n-maxMetaLen)*2)
	}
	lower := strings.ToLower(meta)
	if focus != "" && strings.Contains(lower, strings.ToLower(focus)) {
		score += 40
	}
	for _, w := range ctaWords {
		if strings.Contains(lower, w) {
			score += 20
			break
		}
	}
	return math.Min(score, 100)
}

func structureScore(body string) float64 {
	var score float64
	h1 := len(h1Re.FindAllStringIndex(body, -1))
	h2 := len(h2Re.FindAllStringIndex(body, -1))
	h3 := len(h3Re.FindAllStringIndex(body, -1))

	switch {
	case h1 == 1:
		score += 25
	case h1 > 1:
		score += math.Max(0, 25-float64(h1-1)*10)
	}
	switch {
	case h2 >= 2 && h2 <= 6:
		score += 30
	case h2 > 0:
		score += math.Min(float64(h2*10), 20)
	}
	score += math.Min(float64(h3*5), 15)
	if p := len(Paragraphs(body)); p >= 3 {
		score += 20
	} else {
		score += float64(p * 7)
	}
	if ListItems(body) > 0 {
		score += 10
	}
	return math.Min(score, 100)
}

// internalLinks suggests up to five keyword mentions worth linking.
func internalLinks(body string, keywords []string) []map[string]string {
	var out []map[string]string
	for _, kw := range keywords {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		for _, m := range re.FindAllStringIndex(body, -1) {
			if len(out) >= 5 {
				return out
			}
			out = append(out, map[string]string{
				"keyword": kw,
				"context": strings.TrimSpace(body[max(0, m[0]-50):min(len(body), m[1]+50)]),
				"url":     "/" + Slug(kw),
			})
		}
	}
	return out
}

// Slug turns a title into a URL path segment: lowercase, hyphen separated,
// at most eight words once it grows past 60 characters. Empty input yields
// "article".
func Slug(title string) string {
	s := strings.ToLower(title)
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		parts := strings.Split(s, "-")
		s = strings.Join(parts[:min(8, len(parts))], "-")
	}
	if s == "" {
		return "article"
	}
	return s
}

func stripHeadings(text string) string {
	return headingRe.ReplaceAllString(text, "")
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
