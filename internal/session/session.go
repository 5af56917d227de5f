// Package session is the editor's single application state: the document,
// its panels, the split layout and preferences, with every change written
// through to persistence and announced to subscribers.
package session

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/starford/mdpad/internal/apperr"
	"github.com/starford/mdpad/internal/checksum"
	"github.com/starford/mdpad/internal/document"
	"github.com/starford/mdpad/internal/export"
	"github.com/starford/mdpad/internal/layout"
	"github.com/starford/mdpad/internal/models"
	"github.com/starford/mdpad/internal/panel"
	"github.com/starford/mdpad/internal/persist"
	"github.com/starford/mdpad/internal/render"
	"github.com/starford/mdpad/internal/sse"
	"github.com/starford/mdpad/internal/storage"
	"github.com/starford/mdpad/internal/watch"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Publisher receives change notifications. *sse.Broker implements it.
type Publisher interface {
	Publish(sse.Event)
	PublishThrottled(sse.Event)
}

// DocumentEvent is the payload of document.updated.
type DocumentEvent struct {
	Revision     uint64 `json:"revision"`
	Checksum     string `json:"checksum"`
	RenderFailed bool   `json:"render_failed"`
	Linked       string `json:"linked,omitempty"`
}

// KeyResult is the outcome of a handled key press.
type KeyResult struct {
	Snapshot  document.Snapshot `json:"snapshot"`
	Selection panel.Selection   `json:"selection"`
}

// Session owns all mutable editor state. Mutations are serialised by one
// mutex, so every caller observes them in program order.
type Session struct {
	mu sync.Mutex

	logger    *slog.Logger
	adapter   *persist.Adapter
	exporter  *export.Service
	files     storage.Provider
	publisher Publisher

	doc     *document.Model
	editor  *panel.Editor
	preview *panel.Preview
	bus     *layout.Bus
	layout  *layout.Controller

	prefs  models.Preferences
	linked string
}

// Option configures a Session.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	files      storage.Provider
	publisher  Publisher
	breakpoint float64
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFiles enables workspace file operations.
func WithFiles(p storage.Provider) Option {
	return func(o *options) { o.files = p }
}

// WithPublisher sends change events to p.
func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithBreakpoint sets the stacked-layout viewport breakpoint.
func WithBreakpoint(px float64) Option {
	return func(o *options) { o.breakpoint = px }
}

// New creates a session holding the welcome document and default
// preferences. Call Hydrate to restore persisted state.
func New(r render.Renderer, exporter *export.Service, adapter *persist.Adapter, opts ...Option) *Session {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		logger:    o.logger,
		adapter:   adapter,
		exporter:  exporter,
		files:     o.files,
		publisher: o.publisher,
		prefs:     models.DefaultPreferences(),
		bus:       layout.NewBus(),
	}

	s.doc = document.New(r, WelcomeDocument,
		document.WithLogger(o.logger),
		document.WithObserver(func(snap document.Snapshot) {
			s.preview.Repaint(snap)
		}),
	)
	s.preview = panel.NewPreview(s.doc.Snapshot())
	s.editor = panel.NewEditor(s.doc)

	layoutOpts := []layout.Option{layout.WithObserver(s.onLayout)}
	if o.breakpoint > 0 {
		layoutOpts = append(layoutOpts, layout.WithBreakpoint(o.breakpoint))
	}
	s.layout = layout.NewController(s.bus, layoutOpts...)

	return s
}

// Hydrate restores the persisted record, if any. Invalid preference fields
// fall back to their defaults; the text is always kept.
func (s *Session) Hydrate(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.adapter.Load(ctx)
	if !ok {
		s.logger.Info("session: no saved state, starting with welcome document")
		return false
	}
	if err := rec.Preferences.Validate(); err != nil {
		s.logger.Warn("session: saved preferences invalid, using defaults", slog.String("error", err.Error()))
		rec.Preferences = rec.Preferences.Repair()
	}
	s.prefs = rec.Preferences
	snap := s.doc.SetText(rec.Text)
	s.logger.Info("session: restored", slog.Int("bytes", len(snap.Text)))
	return true
}

// Close releases layout listeners and the persistence store.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout.Close()
	return s.adapter.Close()
}

// Snapshot returns the buffer and its rendering.
func (s *Session) Snapshot() document.Snapshot {
	return s.doc.Snapshot()
}

// Linked returns the workspace path the buffer is linked to, or "".
func (s *Session) Linked() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linked
}

// SetText replaces the buffer. A non-empty ifMatch must equal the current
// checksum, otherwise apperr.ErrConflict is returned.
func (s *Session) SetText(ctx context.Context, text, ifMatch string) (document.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ifMatch != "" && ifMatch != s.doc.Snapshot().Checksum {
		return document.Snapshot{}, apperr.ErrConflict
	}
	return s.commitLocked(ctx, s.doc.SetText(text)), nil
}

// Import replaces the buffer with uploaded file content. Content that is
// not UTF-8 is rejected and the buffer is left as it was. Import unlinks
// any workspace file.
func (s *Session) Import(ctx context.Context, data []byte) (document.Snapshot, error) {
	text, err := decodeText(data)
	if err != nil {
		return document.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.linked = ""
	return s.commitLocked(ctx, s.doc.SetText(text)), nil
}

// Reset replaces the buffer with the welcome document ("new file").
func (s *Session) Reset(ctx context.Context) document.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linked = ""
	return s.commitLocked(ctx, s.doc.SetText(WelcomeDocument))
}

// HandleKey applies an intercepted key press at sel. Keys the editor does
// not intercept report false and change nothing.
func (s *Session) HandleKey(ctx context.Context, key panel.Key, sel panel.Selection) (KeyResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, caret, ok := s.editor.HandleKey(key, sel)
	if !ok {
		return KeyResult{}, false
	}
	return KeyResult{Snapshot: s.commitLocked(ctx, snap), Selection: caret}, true
}

// ScrollEditor moves the editor surface; the gutter follows.
func (s *Session) ScrollEditor(top int) panel.EditorView {
	s.editor.Scroll(top)
	return s.editor.View()
}

// ScrollPreview moves the preview surface.
func (s *Session) ScrollPreview(top int) panel.PreviewView {
	s.preview.Scroll(top)
	return s.preview.View()
}

// EditorView returns the editor panel state.
func (s *Session) EditorView() panel.EditorView {
	return s.editor.View()
}

// PreviewView returns the preview panel state.
func (s *Session) PreviewView() panel.PreviewView {
	return s.preview.View()
}

// Preferences returns the current preferences.
func (s *Session) Preferences() models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// SetTheme changes the theme only.
func (s *Session) SetTheme(ctx context.Context, theme string) (models.Preferences, error) {
	return s.UpdatePreferences(ctx, func(cur *models.Preferences) { cur.Theme = theme })
}

// SetFontSize changes the font size only.
func (s *Session) SetFontSize(ctx context.Context, size int) (models.Preferences, error) {
	return s.UpdatePreferences(ctx, func(cur *models.Preferences) { cur.FontSize = size })
}

// UpdatePreferences applies fn to a copy of the current preferences and
// commits the result if it validates.
func (s *Session) UpdatePreferences(ctx context.Context, fn func(*models.Preferences)) (models.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	fn(&next)
	if err := next.Validate(); err != nil {
		return models.Preferences{}, fmt.Errorf("session: preferences: %w: %v", apperr.ErrInvalidInput, err)
	}
	if next == s.prefs {
		return next, nil
	}
	s.prefs = next
	s.saveLocked(ctx)
	s.publish(sse.Event{Type: sse.TypePreferencesUpdated, Data: next})
	return next, nil
}

// Events describes the current document, preferences and layout as the
// events that would have produced them.
func (s *Session) Events() []sse.Event {
	s.mu.Lock()
	doc := s.documentEventLocked(s.doc.Snapshot())
	prefs := s.prefs
	s.mu.Unlock()

	return []sse.Event{
		{Type: sse.TypeDocumentUpdated, Data: doc},
		{Type: sse.TypePreferencesUpdated, Data: prefs},
		{Type: sse.TypeLayoutUpdated, Data: s.layout.State()},
	}
}

// Layout returns the split state.
func (s *Session) Layout() layout.State {
	return s.layout.State()
}

// SetGeometry updates container and viewport dimensions.
func (s *Session) SetGeometry(g layout.Geometry) layout.State {
	s.layout.SetGeometry(g)
	return s.layout.State()
}

// Pointer delivers a pointer event to the layout's listeners.
func (s *Session) Pointer(ev layout.PointerEvent) layout.State {
	s.bus.Dispatch(ev)
	return s.layout.State()
}

// ExportMarkdown returns the buffer as a .md artifact.
func (s *Session) ExportMarkdown() models.Artifact {
	return s.exporter.Markdown(s.doc.Text())
}

// ExportBundle returns the buffer and its rendered page as a .zip artifact.
func (s *Session) ExportBundle() (models.Artifact, error) {
	return s.exporter.Bundle(s.doc.Text())
}

// ListFiles returns the workspace's Markdown files.
func (s *Session) ListFiles() ([]models.FileInfo, error) {
	if s.files == nil {
		return nil, errNoWorkspace
	}
	return s.files.List("")
}

// OpenFile loads a workspace file into the buffer and links it.
func (s *Session) OpenFile(ctx context.Context, path string) (document.Snapshot, error) {
	if s.files == nil {
		return document.Snapshot{}, errNoWorkspace
	}
	if err := checkMarkdownPath(path); err != nil {
		return document.Snapshot{}, err
	}
	data, err := s.files.Read(path)
	if err != nil {
		return document.Snapshot{}, err
	}
	text, err := decodeText(data)
	if err != nil {
		return document.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.linked = path
	return s.commitLocked(ctx, s.doc.SetText(text)), nil
}

// SaveFile writes the buffer to a workspace file and links it. An empty
// path saves to the linked file, or to a new untitled file when nothing is
// linked. Saving over a different existing file requires overwrite.
func (s *Session) SaveFile(ctx context.Context, path string, overwrite bool) (string, error) {
	if s.files == nil {
		return "", errNoWorkspace
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if path == "" {
		path = s.linked
	}
	if path == "" {
		path = "untitled-" + uuid.NewString() + ".md"
	}
	if err := checkMarkdownPath(path); err != nil {
		return "", err
	}
	if path != s.linked && !overwrite {
		exists, err := s.files.Exists(path)
		if err != nil {
			return "", err
		}
		if exists {
			return "", fmt.Errorf("session: save %s: %w", path, apperr.ErrAlreadyExists)
		}
	}

	snap := s.doc.Snapshot()
	if err := s.files.Write(path, []byte(snap.Text)); err != nil {
		return "", err
	}
	s.linked = path
	s.logger.Info("session: saved file", slog.String("path", path), slog.Int("bytes", len(snap.Text)))
	s.publish(sse.Event{Type: sse.TypeDocumentUpdated, Data: s.documentEventLocked(snap)})
	return path, nil
}

// OnFileChange is a watch.Callback: it reloads the linked file when it
// changes on disk. Changes that match the buffer are ignored.
func (s *Session) OnFileChange(kind, path string) {
	ctx := context.Background()

	s.mu.Lock()
	linked := s.linked
	s.mu.Unlock()
	if path != linked || s.files == nil {
		return
	}

	if kind == watch.KindDeleted {
		s.logger.Warn("session: linked file removed, keeping buffer", slog.String("path", path))
		return
	}

	data, err := s.files.Read(path)
	if err != nil {
		s.logger.Warn("session: reload failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	text, err := decodeText(data)
	if err != nil {
		s.logger.Warn("session: reload skipped", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the lock: the link may have moved meanwhile.
	if s.linked != path || checksum.String(text) == s.doc.Snapshot().Checksum {
		return
	}
	s.logger.Info("session: reloaded linked file", slog.String("path", path))
	s.commitLocked(ctx, s.doc.SetText(text))
}

// commitLocked mirrors a new snapshot to persistence and subscribers.
func (s *Session) commitLocked(ctx context.Context, snap document.Snapshot) document.Snapshot {
	s.saveLocked(ctx)
	s.publish(sse.Event{Type: sse.TypeDocumentUpdated, Data: s.documentEventLocked(snap)})
	return snap
}

func (s *Session) saveLocked(ctx context.Context) {
	// The write must finish even if the caller's request is cancelled.
	s.adapter.Save(context.WithoutCancel(ctx), persist.Record{
		Text:        s.doc.Text(),
		Preferences: s.prefs,
	})
}

func (s *Session) documentEventLocked(snap document.Snapshot) DocumentEvent {
	return DocumentEvent{
		Revision:     snap.Revision,
		Checksum:     snap.Checksum,
		RenderFailed: snap.RenderFailed,
		Linked:       s.linked,
	}
}

func (s *Session) onLayout(st layout.State) {
	if s.publisher != nil {
		s.publisher.PublishThrottled(sse.Event{Type: sse.TypeLayoutUpdated, Data: st})
	}
}

func (s *Session) publish(ev sse.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
}

var errNoWorkspace = fmt.Errorf("session: no workspace configured: %w", apperr.ErrNotFound)

func decodeText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", apperr.ErrNotText
	}
	return string(bytes.TrimPrefix(data, utf8BOM)), nil
}

func checkMarkdownPath(path string) error {
	if !strings.HasSuffix(strings.ToLower(path), ".md") {
		return fmt.Errorf("session: %q is not a .md file: %w", path, apperr.ErrInvalidInput)
	}
	return nil
}
