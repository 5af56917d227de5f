package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/mdpad/internal/models"
)

func testStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mdpad-test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLite_LoadEmpty(t *testing.T) {
	s, _ := testStore(t)
	_, ok, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Error("expected no record on first run")
	}
}

func TestSQLite_SaveAndLoad(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	rec := Record{Text: "hello", Preferences: models.Preferences{Theme: models.ThemeDark, FontSize: 18}}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := s.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got != rec {
		t.Errorf("got %+v, want %+v", got, rec)
	}
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	s, path := testStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, Record{Text: "hello", Preferences: models.DefaultPreferences()}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, ok, err := reopened.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Text != "hello" {
		t.Errorf("text = %q", got.Text)
	}
}

func TestSQLite_EmptyTextIsARecord(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, Record{Text: "", Preferences: models.DefaultPreferences()}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := s.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Text != "" {
		t.Errorf("text = %q", got.Text)
	}
}

func TestSQLite_LastWriteWins(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		if err := s.Save(ctx, Record{Text: text, Preferences: models.DefaultPreferences()}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	got, _, _ := s.Load(ctx)
	if got.Text != "three" {
		t.Errorf("text = %q, want three", got.Text)
	}
}

func TestSQLite_Clear(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	_ = s.Save(ctx, Record{Text: "x", Preferences: models.DefaultPreferences()})
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := s.Load(ctx); ok {
		t.Error("record should be gone after Clear")
	}
}

func TestOpenSQLite_BadPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenSQLite(filepath.Join(blocker, "sub", "db.sqlite")); err == nil {
		t.Error("expected error for path under a regular file")
	}
}

func TestSQLite_MalformedFontSizeKeepsText(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, Record{Text: "hello", Preferences: models.Preferences{Theme: models.ThemeDark, FontSize: 16}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.conn.ExecContext(ctx, `UPDATE kv SET value = '14px' WHERE key = ?`, KeyFontSize); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Text != "hello" {
		t.Errorf("text = %q, want hello", got.Text)
	}
	if got.Preferences.Theme != models.ThemeDark {
		t.Errorf("theme = %q, want dark", got.Preferences.Theme)
	}
	if got.Preferences.Validate() == nil {
		t.Errorf("font size %d should fail validation", got.Preferences.FontSize)
	}

	a := NewAdapter(s, nil)
	if rec, ok := a.Load(ctx); !ok || rec.Text != "hello" {
		t.Errorf("adapter Load = %+v, %v; want the saved text", rec, ok)
	}
}
