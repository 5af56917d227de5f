// Package storage defines the workspace file-system abstraction.
package storage

import "github.com/starford/mdpad/internal/models"

// Provider is the interface for workspace file operations. Paths are
// relative to the workspace root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// Rel maps an absolute path under the root back to a relative one.
	Rel(abs string) (string, bool)
}
