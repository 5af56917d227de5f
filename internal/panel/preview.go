package panel

import (
	"sync"

	"github.com/starford/mdpad/internal/document"
)

// PreviewView is the rendered output as last painted.
type PreviewView struct {
	HTML         string `json:"html"`
	Revision     uint64 `json:"revision"`
	RenderFailed bool   `json:"render_failed"`
	ScrollTop    int    `json:"scroll_top"`
}

// Preview is the read-only rendered surface. Its scroll offset is
// independent of the editor.
type Preview struct {
	mu   sync.Mutex
	view PreviewView
}

// NewPreview creates a preview painted with snap.
func NewPreview(snap document.Snapshot) *Preview {
	p := &Preview{}
	p.Repaint(snap)
	return p
}

// Repaint shows snap. Snapshots older than the painted one are ignored.
func (p *Preview) Repaint(snap document.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if snap.Revision < p.view.Revision {
		return
	}
	p.view.HTML = snap.HTML
	p.view.Revision = snap.Revision
	p.view.RenderFailed = snap.RenderFailed
}

// Scroll sets the preview offset.
func (p *Preview) Scroll(top int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.ScrollTop = max(top, 0)
}

// View returns the painted state.
func (p *Preview) View() PreviewView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}
