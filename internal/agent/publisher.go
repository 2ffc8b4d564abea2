package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dusk-indust/contentpipe/internal/content"
	"github.com/dusk-indust/contentpipe/internal/export"
)

// PublisherSettings configures where published content goes.
type PublisherSettings struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir" validate:"required_if=Enabled true"`
	// BaseURL prefixes the slug in the publication URL. When empty the URL
	// is a file:// link to the written HTML.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// PublisherAgent renders the final content to HTML and writes it, with its
// markdown source, into an output directory.
type PublisherAgent struct {
	*BaseAgent[PublisherInput, PublisherOutput]
	settings PublisherSettings
	now      func() time.Time
	logger   *zap.Logger
}

// NewPublisherAgent creates a publisher writing under settings.OutputDir.
func NewPublisherAgent(settings PublisherSettings, logger *zap.Logger) *PublisherAgent {
	pa := &PublisherAgent{settings: settings, now: time.Now, logger: orNop(logger)}
	card := Card{
		Name:        "publisher",
		Kind:        KindPublisher,
		Description: "Publishes finished content as HTML and markdown files.",
		Capabilities: []string{
			"markdown_rendering", "html_export", "scheduling", "slug_naming",
		},
	}
	pa.BaseAgent = NewBaseAgent[PublisherInput, PublisherOutput](card, pa.process,
		WithBaseLogger[PublisherInput, PublisherOutput](pa.logger),
	)
	return pa
}

func (pa *PublisherAgent) process(ctx context.Context, in PublisherInput, meta Meta) (Outcome[PublisherOutput], error) {
	if pa.settings.OutputDir == "" {
		return Outcome[PublisherOutput]{}, fmt.Errorf("publisher output directory not configured")
	}
	slug := in.Slug
	if slug == "" {
		slug = Slug(in.Title)
	}

	now := pa.now().UTC()
	status := "published"
	var scheduled string
	if in.ScheduleTime != "" {
		at, err := time.Parse(time.RFC3339, in.ScheduleTime)
		if err != nil {
			return Outcome[PublisherOutput]{}, fmt.Errorf("invalid schedule_time %q: %w", in.ScheduleTime, err)
		}
		if at.After(now) {
			status = "scheduled"
			scheduled = at.UTC().Format(time.RFC3339)
		}
	}

	body := in.Content
	if !strings.HasPrefix(strings.TrimSpace(body), "# ") {
		body = "# " + in.Title + "\n\n" + body
	}
	page, err := export.HTMLPage(in.Title, in.MetaDescription, body)
	if err != nil {
		return Outcome[PublisherOutput]{}, err
	}
	if err := ctx.Err(); err != nil {
		return Outcome[PublisherOutput]{}, err
	}

	if err := os.MkdirAll(pa.settings.OutputDir, 0o755); err != nil {
		return Outcome[PublisherOutput]{}, fmt.Errorf("create output dir: %w", err)
	}
	htmlPath := filepath.Join(pa.settings.OutputDir, slug+".html")
	if err := os.WriteFile(htmlPath, page, 0o644); err != nil {
		return Outcome[PublisherOutput]{}, fmt.Errorf("write %s: %w", htmlPath, err)
	}
	mdPath := filepath.Join(pa.settings.OutputDir, slug+".md")
	if err := os.WriteFile(mdPath, []byte(body+"\n"), 0o644); err != nil {
		return Outcome[PublisherOutput]{}, fmt.Errorf("write %s: %w", mdPath, err)
	}

	pub := content.Publication{
		ID:            uuid.NewString(),
		URL:           pa.publicationURL(slug, htmlPath),
		Status:        status,
		Platform:      in.Platform,
		ScheduledTime: scheduled,
		PublishedAt:   now,
	}
	pa.logger.Info("content published",
		zap.String("workflow_id", meta.WorkflowID),
		zap.String("status", status),
		zap.String("path", htmlPath),
	)
	return Outcome[PublisherOutput]{
		Data:         PublisherOutput{Publication: pub},
		QualityScore: Score(1),
		Metadata: map[string]any{
			"html_path":     htmlPath,
			"markdown_path": mdPath,
			"tags":          in.Tags,
		},
	}, nil
}

func (pa *PublisherAgent) publicationURL(slug, path string) string {
	if pa.settings.BaseURL != "" {
		return strings.TrimSuffix(pa.settings.BaseURL, "/") + "/" + slug
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}
