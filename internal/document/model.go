// Package document owns the Markdown buffer and its rendered preview.
//
// Model is the single source of truth: every write replaces the buffer and
// re-renders it under one lock, so readers always observe a text and HTML
// pair that belong together.
package document

import (
	"log/slog"
	"sync"

	"github.com/starford/mdpad/internal/checksum"
	"github.com/starford/mdpad/internal/render"
)

// Snapshot is a consistent view of the buffer and its rendering.
type Snapshot struct {
	Text     string `json:"text"`
	HTML     string `json:"html"`
	Revision uint64 `json:"revision"`
	Checksum string `json:"checksum"`
	// RenderFailed is set when HTML is render.ErrorPlaceholder.
	RenderFailed bool `json:"render_failed"`
}

// Observer is called after every mutation with the new snapshot, while the
// model's write lock is still held. Observers must not call back into the
// model's mutating methods.
type Observer func(Snapshot)

// Model holds the buffer and derived HTML.
type Model struct {
	mu        sync.RWMutex
	renderer  render.Renderer
	logger    *slog.Logger
	observers []Observer
	snap      Snapshot
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for render failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// WithObserver registers fn to run after each mutation.
func WithObserver(fn Observer) Option {
	return func(m *Model) {
		m.observers = append(m.observers, fn)
	}
}

// New creates a model holding initial, rendered. Observers are not called
// for the initial value.
func New(r render.Renderer, initial string, opts ...Option) *Model {
	m := &Model{renderer: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	m.snap = m.build(initial, 0)
	return m
}

// SetText replaces the buffer, renders it and notifies observers.
func (m *Model) SetText(text string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = m.build(text, m.snap.Revision+1)
	for _, fn := range m.observers {
		fn(m.snap)
	}
	return m.snap
}

// Text returns the current buffer.
func (m *Model) Text() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Text
}

// HTML returns the current rendered output.
func (m *Model) HTML() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.HTML
}

// Snapshot returns the buffer and rendering as one consistent value.
func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

func (m *Model) build(text string, rev uint64) Snapshot {
	snap := Snapshot{
		Text:     text,
		Revision: rev,
		Checksum: checksum.String(text),
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		m.logger.Error("document: render failed",
			slog.Uint64("revision", rev),
			slog.Int("bytes", len(text)),
			slog.String("error", err.Error()))
		snap.HTML = render.ErrorPlaceholder
		snap.RenderFailed = true
		return snap
	}
	snap.HTML = out
	return snap
}
