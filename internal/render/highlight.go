package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter turns a code span into HTML markup. An empty or unknown
// language yields the escaped text with no token markup.
type Highlighter interface {
	Highlight(code, lang string) (string, error)
}

// ChromaHighlighter highlights code with chroma using CSS classes, so the
// colours live in a stylesheet (see CSS) rather than inline attributes.
type ChromaHighlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewChromaHighlighter creates a highlighter for the named chroma style.
// Unknown style names fall back to chroma's default style.
func NewChromaHighlighter(styleName string) *ChromaHighlighter {
	return &ChromaHighlighter{
		style: styles.Get(styleName),
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.PreventSurroundingPre(true),
		),
	}
}

// Highlight implements Highlighter.
func (h *ChromaHighlighter) Highlight(code, lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return html.EscapeString(code), nil
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return html.EscapeString(code), nil
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("render: tokenise %s: %w", lang, err)
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, it); err != nil {
		return "", fmt.Errorf("render: format %s: %w", lang, err)
	}
	return buf.String(), nil
}

// CSS returns the stylesheet matching the classes emitted by Highlight.
func (h *ChromaHighlighter) CSS() (string, error) {
	var buf bytes.Buffer
	if err := h.formatter.WriteCSS(&buf, h.style); err != nil {
		return "", fmt.Errorf("render: write css: %w", err)
	}
	return buf.String(), nil
}
