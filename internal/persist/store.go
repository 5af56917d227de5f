// Package persist mirrors the editor state into a durable key-value store.
package persist

import (
	"context"

	"github.com/starford/mdpad/internal/models"
)

// Keys under which the record's fields are stored.
const (
	KeyContent  = "markdown-editor-content"
	KeyTheme    = "theme"
	KeyFontSize = "font-size"
)

// Record is the persisted editor state.
type Record struct {
	Text        string             `json:"text"`
	Preferences models.Preferences `json:"preferences"`
}

// Store is a durable key-value backend.
type Store interface {
	// Load returns the stored record, or ok=false when nothing was saved yet.
	Load(ctx context.Context) (rec Record, ok bool, err error)
	// Save overwrites every key of the record.
	Save(ctx context.Context, rec Record) error
	Close() error
}
