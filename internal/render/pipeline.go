// Package render converts the Markdown buffer into preview HTML.
//
// The Pipeline is a pure function of its input: one goldmark engine is
// built at construction time and every Render call parses with a fresh
// context, so equal inputs always yield equal output.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrRender marks a failed conversion.
var ErrRender = errors.New("render failed")

// ErrorPlaceholder is shown in place of the preview when rendering fails.
const ErrorPlaceholder = `<div class="render-error" role="alert"><strong>Preview unavailable.</strong> The document could not be rendered.</div>`

// Renderer is the Document Model's view of the pipeline.
type Renderer interface {
	Render(text string) (string, error)
}

// Options configures the goldmark engine.
type Options struct {
	// Extensions by name; see extensionRegistry. Unknown names are ignored.
	Extensions []string
	// HardWraps turns single newlines into <br>.
	HardWraps bool
}

// DefaultOptions mirrors the editor's historical renderer settings:
// GitHub flavoured Markdown, smart typography and line breaks.
func DefaultOptions() Options {
	return Options{
		Extensions: []string{"gfm", "typographer"},
		HardWraps:  true,
	}
}

// Pipeline renders Markdown and highlights fenced code blocks.
type Pipeline struct {
	md goldmark.Markdown
}

// NewPipeline builds a pipeline. hl must not be nil.
func NewPipeline(opts Options, hl Highlighter) *Pipeline {
	rendererOptions := []renderer.Option{html.WithUnsafe()}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}

	exts := append(collectExtensions(opts.Extensions), &codeBlocks{hl: hl})

	return &Pipeline{
		md: goldmark.New(
			goldmark.WithExtensions(exts...),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(rendererOptions...),
		),
	}
}

// Render implements Renderer. Errors, panics inside goldmark or a
// highlighter, and non-UTF-8 output are all reported as ErrRender.
func (p *Pipeline) Render(text string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("%w: panic: %v", ErrRender, r)
		}
	}()

	var buf bytes.Buffer
	if err := p.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	if !utf8.Valid(buf.Bytes()) {
		return "", fmt.Errorf("%w: output is not valid UTF-8", ErrRender)
	}
	return buf.String(), nil
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

// KnownExtension reports whether name is a registered extension.
func KnownExtension(name string) bool {
	_, ok := extensionRegistry[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func collectExtensions(names []string) []goldmark.Extender {
	var extenders []goldmark.Extender
	// Aliases share one extender; register each extender once.
	seen := map[goldmark.Extender]struct{}{}

	for _, name := range names {
		ext, ok := extensionRegistry[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		extenders = append(extenders, ext)
		seen[ext] = struct{}{}
	}

	return extenders
}
