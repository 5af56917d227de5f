// Package export packages the document for download: the raw Markdown on
// its own, or a zip bundle with the source and a standalone HTML page.
package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html/template"

	"github.com/starford/mdpad/internal/models"
	"github.com/starford/mdpad/internal/parser"
	"github.com/starford/mdpad/internal/render"
)

// Download names and archive entries.
const (
	MarkdownName = "markdown-content.md"
	BundleName   = "markdown-content.zip"

	BundleSourceEntry  = "content.md"
	BundlePreviewEntry = "preview.html"

	MarkdownContentType = "text/markdown; charset=utf-8"
	BundleContentType   = "application/zip"
)

const defaultTitle = "Markdown Preview"

// Service produces export artifacts.
type Service struct {
	renderer render.Renderer
	codeCSS  string
}

// NewService creates an export service. codeCSS is the highlighter
// stylesheet embedded in the standalone page; it may be empty.
func NewService(r render.Renderer, codeCSS string) *Service {
	return &Service{renderer: r, codeCSS: codeCSS}
}

// Markdown returns text as a .md download. Export of the raw buffer never
// fails.
func (s *Service) Markdown(text string) models.Artifact {
	return models.Artifact{
		Name:        MarkdownName,
		ContentType: MarkdownContentType,
		Data:        []byte(text),
	}
}

// Bundle returns a zip archive holding text and its rendered page.
func (s *Service) Bundle(text string) (models.Artifact, error) {
	page, err := s.Page(text)
	if err != nil {
		return models.Artifact{}, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range []struct {
		name string
		data []byte
	}{
		{BundleSourceEntry, []byte(text)},
		{BundlePreviewEntry, page},
	} {
		w, err := zw.Create(entry.name)
		if err != nil {
			return models.Artifact{}, fmt.Errorf("export: create %s: %w", entry.name, err)
		}
		if _, err := w.Write(entry.data); err != nil {
			return models.Artifact{}, fmt.Errorf("export: write %s: %w", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return models.Artifact{}, fmt.Errorf("export: close archive: %w", err)
	}

	return models.Artifact{
		Name:        BundleName,
		ContentType: BundleContentType,
		Data:        buf.Bytes(),
	}, nil
}

// Page renders text into a standalone HTML5 document.
func (s *Service) Page(text string) ([]byte, error) {
	body, err := s.renderer.Render(text)
	if err != nil {
		return nil, fmt.Errorf("export: render: %w", err)
	}

	meta := parser.Parse(text)
	title := meta.Title
	if title == "" {
		title = defaultTitle
	}

	var buf bytes.Buffer
	err = pageTmpl.Execute(&buf, pageData{
		Title:    title,
		Keywords: meta.Tags,
		BaseCSS:  template.CSS(baseCSS),
		CodeCSS:  template.CSS(s.codeCSS),
		Content:  template.HTML(body),
	})
	if err != nil {
		return nil, fmt.Errorf("export: page: %w", err)
	}
	return buf.Bytes(), nil
}
