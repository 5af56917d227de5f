// Package testutil provides shared test helpers for setting up workspaces,
// stores and renderers.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/mdpad/internal/export"
	"github.com/starford/mdpad/internal/persist"
	"github.com/starford/mdpad/internal/render"
	"github.com/starford/mdpad/internal/storage"
)

// TestStore creates a temporary SQLite store that is automatically closed.
func TestStore(t *testing.T) *persist.SQLiteStore {
	t.Helper()
	s, err := persist.OpenSQLite(filepath.Join(t.TempDir(), "mdpad-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestWorkspace creates a temporary workspace directory with a storage provider.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = fs.Close() })
	return dir, fs
}

// TestPipeline returns a renderer with default options and its export service.
func TestPipeline(t *testing.T) (*render.Pipeline, *export.Service) {
	t.Helper()
	hl := render.NewChromaHighlighter("github")
	css, err := hl.CSS()
	if err != nil {
		t.Fatal(err)
	}
	p := render.NewPipeline(render.DefaultOptions(), hl)
	return p, export.NewService(p, css)
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
