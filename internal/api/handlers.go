package api

import (
	"net/http"
	"strings"

	"github.com/starford/mdpad/internal/document"
	"github.com/starford/mdpad/internal/models"
	"github.com/starford/mdpad/internal/panel"
	"github.com/starford/mdpad/internal/parser"
	"github.com/starford/mdpad/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	sess *session.Session
}

// NewHandler creates a new Handler.
func NewHandler(sess *session.Session) *Handler {
	return &Handler{sess: sess}
}

func (h *Handler) documentResponse(snap document.Snapshot) DocumentResponse {
	return DocumentResponse{
		Snapshot:  snap,
		Title:     parser.Parse(snap.Text).Title,
		LineCount: panel.LineCount(snap.Text),
		Linked:    h.sess.Linked(),
	}
}

// GetDocument handles GET /api/document.
//
//	@Summary		Get the buffer and its rendering
//	@Tags			document
//	@Produce		json
//	@Success		200	{object}	DocumentResponse
//	@Security		BearerAuth
//	@Router			/document [get]
func (h *Handler) GetDocument(w http.ResponseWriter, _ *http.Request) {
	snap := h.sess.Snapshot()
	w.Header().Set("ETag", `"`+snap.Checksum+`"`)
	writeJSON(w, http.StatusOK, h.documentResponse(snap))
}

// UpdateDocument handles PUT /api/document.
//
//	@Summary		Replace the buffer with optimistic concurrency
//	@Tags			document
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header	string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateDocumentRequest	true	"New text"
//	@Success		200			{object}	DocumentResponse
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/document [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req UpdateDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "update document", err)
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	snap, err := h.sess.SetText(r.Context(), *req.Text, ifMatch)
	if err != nil {
		writeError(w, "update document", err)
		return
	}
	w.Header().Set("ETag", `"`+snap.Checksum+`"`)
	writeJSON(w, http.StatusOK, h.documentResponse(snap))
}

// ResetDocument handles POST /api/document/reset.
//
//	@Summary		Start a new file from the welcome document
//	@Tags			document
//	@Produce		json
//	@Success		200	{object}	DocumentResponse
//	@Security		BearerAuth
//	@Router			/document/reset [post]
func (h *Handler) ResetDocument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.documentResponse(h.sess.Reset(r.Context())))
}

// HandleKey handles POST /api/document/keys.
//
//	@Summary		Apply an intercepted key press (Tab, Enter)
//	@Tags			document
//	@Accept			json
//	@Produce		json
//	@Param			body	body		KeyRequest	true	"Key and selection"
//	@Success		200		{object}	KeyResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/document/keys [post]
func (h *Handler) HandleKey(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "handle key", err)
		return
	}

	res, ok := h.sess.HandleKey(r.Context(), panel.Key(req.Key), req.Selection)
	if !ok {
		writeJSON(w, http.StatusOK, KeyResponse{Handled: false, Selection: req.Selection})
		return
	}
	doc := h.documentResponse(res.Snapshot)
	writeJSON(w, http.StatusOK, KeyResponse{Handled: true, Document: &doc, Selection: res.Selection})
}

// Scroll handles POST /api/document/scroll.
//
//	@Summary		Scroll the editor (gutter follows) or the preview
//	@Tags			document
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ScrollRequest	true	"Panel and offset"
//	@Success		200		{object}	PanelsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/document/scroll [post]
func (h *Handler) Scroll(w http.ResponseWriter, r *http.Request) {
	var req ScrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "scroll", err)
		return
	}
	if req.Panel == "preview" {
		h.sess.ScrollPreview(req.ScrollTop)
	} else {
		h.sess.ScrollEditor(req.ScrollTop)
	}
	writeJSON(w, http.StatusOK, PanelsResponse{
		Editor:  h.sess.EditorView(),
		Preview: h.sess.PreviewView(),
	})
}

// Preview handles GET /api/document/preview.
//
//	@Summary		Get the rendered preview fragment
//	@Tags			document
//	@Produce		html
//	@Success		200	{string}	string
//	@Security		BearerAuth
//	@Router			/document/preview [get]
func (h *Handler) Preview(w http.ResponseWriter, _ *http.Request) {
	view := h.sess.PreviewView()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(view.HTML))
}

// GetPreferences handles GET /api/preferences.
//
//	@Summary		Get theme and font size
//	@Tags			preferences
//	@Produce		json
//	@Success		200	{object}	PreferencesResponse
//	@Security		BearerAuth
//	@Router			/preferences [get]
func (h *Handler) GetPreferences(w http.ResponseWriter, _ *http.Request) {
	p := h.sess.Preferences()
	writeJSON(w, http.StatusOK, PreferencesResponse{Preferences: p, GutterFontSize: p.GutterFontSize()})
}

// UpdatePreferences handles PUT /api/preferences.
//
//	@Summary		Change theme and/or font size
//	@Tags			preferences
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PreferencesRequest	true	"Fields to change"
//	@Success		200		{object}	PreferencesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preferences [put]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "update preferences", err)
		return
	}

	p, err := h.sess.UpdatePreferences(r.Context(), func(cur *models.Preferences) {
		if req.Theme != nil {
			cur.Theme = *req.Theme
		}
		if req.FontSize != nil {
			cur.FontSize = *req.FontSize
		}
	})
	if err != nil {
		writeError(w, "update preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, PreferencesResponse{Preferences: p, GutterFontSize: p.GutterFontSize()})
}
