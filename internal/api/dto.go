package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mdpad/internal/document"
	"github.com/starford/mdpad/internal/layout"
	"github.com/starford/mdpad/internal/models"
	"github.com/starford/mdpad/internal/panel"
)

// DocumentResponse is the buffer with its rendering and editor metadata.
type DocumentResponse struct {
	document.Snapshot
	Title     string `json:"title" example:"Welcome to Markdown Editor"`
	LineCount int    `json:"line_count" example:"12" validate:"required"`
	Linked    string `json:"linked,omitempty" example:"notes/today.md"`
}

// UpdateDocumentRequest is the request body for replacing the buffer.
type UpdateDocumentRequest struct {
	// Text may be empty; a pointer distinguishes "empty" from "missing".
	Text *string `json:"text" example:"# Hello" validate:"required"`
}

// Validate implements validation.Validatable.
func (r UpdateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.NotNil),
	)
}

// KeyRequest is a key press intercepted by the editor.
type KeyRequest struct {
	Key       string          `json:"key" example:"Enter" validate:"required"`
	Selection panel.Selection `json:"selection"`
}

// Validate implements validation.Validatable.
func (r KeyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required),
	)
}

// KeyResponse reports whether the key was handled and the resulting state.
type KeyResponse struct {
	Handled   bool              `json:"handled"`
	Document  *DocumentResponse `json:"document,omitempty"`
	Selection panel.Selection   `json:"selection"`
}

// ScrollRequest moves a panel surface.
type ScrollRequest struct {
	Panel     string `json:"panel" example:"editor" validate:"required"`
	ScrollTop int    `json:"scroll_top" example:"120"`
}

// Validate implements validation.Validatable.
func (r ScrollRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Panel, validation.Required, validation.In("editor", "preview")),
		validation.Field(&r.ScrollTop, validation.Min(0)),
	)
}

// PanelsResponse is the scroll state of both panels.
type PanelsResponse struct {
	Editor  panel.EditorView  `json:"editor"`
	Preview panel.PreviewView `json:"preview"`
}

// PreferencesRequest updates theme and/or font size.
type PreferencesRequest struct {
	Theme    *string `json:"theme,omitempty" example:"dark"`
	FontSize *int    `json:"font_size,omitempty" example:"16"`
}

// Validate implements validation.Validatable.
func (r PreferencesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Theme, validation.NilOrNotEmpty, validation.In(models.ThemeLight, models.ThemeDark)),
		validation.Field(&r.FontSize, validation.Min(models.MinFontSize), validation.Max(models.MaxFontSize)),
	)
}

// PreferencesResponse is the preferences plus derived display sizes.
type PreferencesResponse struct {
	models.Preferences
	GutterFontSize int `json:"gutter_font_size" example:"12"`
}

// GeometryRequest is the split container and viewport size in CSS pixels.
type GeometryRequest struct {
	ContainerLeft  float64 `json:"container_left" example:"0"`
	ContainerWidth float64 `json:"container_width" example:"1280"`
	ViewportWidth  float64 `json:"viewport_width" example:"1280"`
}

// Validate implements validation.Validatable.
func (r GeometryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ContainerWidth, validation.Min(0.0)),
		validation.Field(&r.ViewportWidth, validation.Min(0.0)),
	)
}

// PointerRequest is one pointer or touch event.
type PointerRequest struct {
	Kind   string  `json:"kind" example:"move" validate:"required"`
	Target string  `json:"target,omitempty" example:"divider"`
	X      float64 `json:"x" example:"640"`
	Touch  bool    `json:"touch,omitempty"`
}

// Validate implements validation.Validatable.
func (r PointerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.In("down", "move", "up", "cancel", "leave")),
		validation.Field(&r.Target, validation.In("window", "divider")),
	)
}

func (r PointerRequest) event() layout.PointerEvent {
	kind, _ := layout.ParsePointerKind(r.Kind)
	target := layout.TargetWindow
	if r.Target == "divider" {
		target = layout.TargetDivider
	}
	return layout.PointerEvent{Kind: kind, Target: target, X: r.X, Touch: r.Touch}
}

// FileListResponse wraps the workspace listing.
type FileListResponse struct {
	Files []models.FileInfo `json:"files" validate:"required"`
}

// OpenFileRequest names a workspace file to load.
type OpenFileRequest struct {
	Path string `json:"path" example:"notes/today.md" validate:"required"`
}

// Validate implements validation.Validatable.
func (r OpenFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// SaveFileRequest names the workspace file to write. An empty path saves
// to the linked file.
type SaveFileRequest struct {
	Path      string `json:"path,omitempty" example:"notes/today.md"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

// SaveFileResponse reports where the buffer was written.
type SaveFileResponse struct {
	Path     string `json:"path" example:"notes/today.md" validate:"required"`
	Checksum string `json:"checksum" validate:"required"`
}
