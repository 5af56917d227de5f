// Package panel holds the editor and preview surfaces bound to a document.
package panel

import (
	"sync"

	"github.com/starford/mdpad/internal/document"
)

// Buffer is the text store the editor writes to.
type Buffer interface {
	Text() string
	SetText(text string) document.Snapshot
}

// EditorView is what a client needs to draw the editor.
type EditorView struct {
	LineCount       int       `json:"line_count"`
	ScrollTop       int       `json:"scroll_top"`
	GutterScrollTop int       `json:"gutter_scroll_top"`
	Selection       Selection `json:"selection"`
}

// Editor translates key presses into buffer edits and tracks the text
// surface's scroll position. Read-modify-write of the buffer is only
// atomic if callers serialise edits; the session does.
// The line-number gutter has no scroll setter: its offset is copied from
// the text surface on every Scroll.
type Editor struct {
	mu              sync.Mutex
	buf             Buffer
	scrollTop       int
	gutterScrollTop int
	sel             Selection
}

// NewEditor binds an editor to buf.
func NewEditor(buf Buffer) *Editor {
	return &Editor{buf: buf}
}

// HandleKey applies key at sel. Handled keys write the buffer and return
// the new caret; others leave the buffer untouched and only record sel as
// the client's current selection.
func (e *Editor) HandleKey(key Key, sel Selection) (document.Snapshot, Selection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	text := e.buf.Text()
	edit, ok := ApplyKey(text, sel, key)
	if !ok {
		e.sel = sel.normalize(len([]rune(text)))
		return document.Snapshot{}, sel, false
	}
	snap := e.buf.SetText(edit.Text)
	e.sel = Caret(edit.Caret)
	return snap, e.sel, true
}

// Scroll sets the text surface offset and slaves the gutter to it.
func (e *Editor) Scroll(top int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scrollTop = max(top, 0)
	e.gutterScrollTop = e.scrollTop
}

// View returns the editor state for the current buffer.
func (e *Editor) View() EditorView {
	e.mu.Lock()
	defer e.mu.Unlock()
	text := e.buf.Text()
	return EditorView{
		LineCount:       LineCount(text),
		ScrollTop:       e.scrollTop,
		GutterScrollTop: e.gutterScrollTop,
		Selection:       e.sel.normalize(len([]rune(text))),
	}
}
