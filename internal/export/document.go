// Package export renders finished documents and workflow templates for
// people: markdown with front matter, standalone HTML pages, JSON reports
// and Mermaid diagrams.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/contentpipe/internal/content"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// frontMatter is the YAML header written ahead of exported markdown.
type frontMatter struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Slug        string    `yaml:"slug,omitempty"`
	Keywords    []string  `yaml:"keywords,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
	ContentType string    `yaml:"content_type,omitempty"`
	Platform    string    `yaml:"platform,omitempty"`
	QAScore     float64   `yaml:"qa_score,omitempty"`
	Date        time.Time `yaml:"date"`
}

// Markdown renders a document as a markdown file with YAML front matter,
// the title as an H1, the body and a references section when research
// produced any.
func Markdown(doc content.Document, now time.Time) ([]byte, error) {
	fm := frontMatter{
		Title:       doc.DisplayTitle(),
		Description: description(doc),
		Tags:        doc.Tags,
		ContentType: doc.ContentType,
		Platform:    doc.TargetPlatform,
		Date:        now.UTC(),
	}
	if doc.SEO != nil {
		fm.Slug = doc.SEO.URLSlug
		fm.Keywords = doc.SEO.Keywords
	}
	if doc.QAValidation != nil {
		fm.QAScore = doc.QAValidation.OverallScore
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(Body(doc))
	return buf.Bytes(), nil
}

// Body returns the document's markdown without front matter: an H1 title
// unless the content already carries one, then the content and references.
func Body(doc content.Document) string {
	var b strings.Builder
	text := strings.TrimSpace(doc.Content)
	if !strings.HasPrefix(text, "# ") {
		fmt.Fprintf(&b, "# %s\n\n", doc.DisplayTitle())
	}
	b.WriteString(text)
	b.WriteString("\n")

	if doc.ResearchData != nil && len(doc.ResearchData.References) > 0 {
		b.WriteString("\n## References\n\n")
		for _, r := range doc.ResearchData.References {
			if r.URL != "" {
				fmt.Fprintf(&b, "%d. [%s](%s)\n", r.ID, r.Title, r.URL)
			} else {
				fmt.Fprintf(&b, "%d. %s\n", r.ID, r.Title)
			}
		}
	}
	return b.String()
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{- if .Description}}
<meta name="description" content="{{.Description}}">
{{- end}}
<style>
body { max-width: 46rem; margin: 2rem auto; padding: 0 1rem; font: 17px/1.6 Georgia, serif; color: #222; }
h1, h2, h3 { font-family: system-ui, sans-serif; line-height: 1.25; }
blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1rem; color: #555; }
</style>
</head>
<body>
<article>
{{.Body}}
</article>
</body>
</html>
`))

// HTMLPage renders markdown into a standalone HTML page.
func HTMLPage(title, desc, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	var out bytes.Buffer
	err := pageTmpl.Execute(&out, struct {
		Title, Description string
		Body               template.HTML
	}{title, desc, template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return out.Bytes(), nil
}

// HTML renders a document as a standalone HTML page.
func HTML(doc content.Document) ([]byte, error) {
	return HTMLPage(doc.DisplayTitle(), description(doc), Body(doc))
}

func description(doc content.Document) string {
	if doc.SEO != nil && doc.SEO.MetaDescription != "" {
		return doc.SEO.MetaDescription
	}
	return doc.MetaDescription
}
