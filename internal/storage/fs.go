package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/mdpad/internal/apperr"
	"github.com/starford/mdpad/internal/checksum"
	"github.com/starford/mdpad/internal/models"
)

// tempPrefix marks in-flight writes. The watcher and List ignore them.
const tempPrefix = ".mdpad-tmp-"

// FS implements Provider on a local directory. All access goes through an
// os.Root, so neither ".." nor symlinks can reach outside the workspace.
type FS struct {
	dir  string
	root *os.Root
}

var _ Provider = (*FS)(nil)

// NewFS opens the workspace directory, which must already exist.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open root: %w", err)
	}
	return &FS{dir: abs, root: root}, nil
}

// Root returns the absolute workspace directory.
func (f *FS) Root() string {
	return f.dir
}

// Close releases the workspace handle.
func (f *FS) Close() error {
	return f.root.Close()
}

// clean turns a client path into a slash-separated path local to the
// root. "" maps to ".".
func clean(p string) (string, error) {
	if p == "" {
		return ".", nil
	}
	p = filepath.ToSlash(p)
	if path.IsAbs(p) || filepath.IsAbs(p) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s: %w", p, apperr.ErrInvalidInput)
	}
	p = path.Clean(p)
	if !filepath.IsLocal(filepath.FromSlash(p)) && p != "." {
		return "", fmt.Errorf("storage: path escapes workspace root: %s: %w", p, apperr.ErrInvalidInput)
	}
	return p, nil
}

// Rel implements Provider.
func (f *FS) Rel(abs string) (string, bool) {
	rel, err := filepath.Rel(f.dir, filepath.Clean(abs))
	if err != nil || rel == "." || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// List walks dir and returns every .md file, sorted by path. Hidden
// directories are skipped.
func (f *FS) List(dir string) ([]models.FileInfo, error) {
	base, err := clean(dir)
	if err != nil {
		return nil, err
	}

	fsys := f.root.FS()
	var out []models.FileInfo
	err = fs.WalkDir(fsys, base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		name := d.Name()
		if d.IsDir() {
			if p != base && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".md") || strings.HasPrefix(name, tempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		out = append(out, models.FileInfo{
			Path:      p,
			Size:      info.Size(),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: list %s: %w", dir, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	slices.SortFunc(out, func(a, b models.FileInfo) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

// Read returns the raw bytes of a workspace file.
func (f *FS) Read(p string) ([]byte, error) {
	rel, err := clean(p)
	if err != nil {
		return nil, err
	}
	data, err := f.root.ReadFile(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: read %s: %w", p, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// Exists implements Provider.
func (f *FS) Exists(p string) (bool, error) {
	rel, err := clean(p)
	if err != nil {
		return false, err
	}
	info, err := f.root.Stat(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	return info.Mode().IsRegular(), nil
}

// Write replaces the file at p via a synced temp file and a rename, so
// readers see either the old or the new content.
func (f *FS) Write(p string, content []byte) error {
	rel, err := clean(p)
	if err != nil {
		return err
	}
	if rel == "." {
		return fmt.Errorf("storage: write: empty path: %w", apperr.ErrInvalidInput)
	}
	dir := path.Dir(rel)
	if err := f.root.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmpName := path.Join(dir, tempPrefix+uuid.NewString())
	tmp, err := f.root.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = f.root.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := f.root.Rename(tmpName, rel); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	committed = true
	return nil
}
