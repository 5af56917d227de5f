package api

import (
	"net/http"

	"github.com/starford/mdpad/internal/layout"
)

// GetLayout handles GET /api/layout.
//
//	@Summary		Get the editor/preview split
//	@Tags			layout
//	@Produce		json
//	@Success		200	{object}	layout.State
//	@Security		BearerAuth
//	@Router			/layout [get]
func (h *Handler) GetLayout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.Layout())
}

// SetGeometry handles PUT /api/layout/geometry.
//
//	@Summary		Report container and viewport size
//	@Tags			layout
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GeometryRequest	true	"Geometry in CSS pixels"
//	@Success		200		{object}	layout.State
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layout/geometry [put]
func (h *Handler) SetGeometry(w http.ResponseWriter, r *http.Request) {
	var req GeometryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "set geometry", err)
		return
	}
	st := h.sess.SetGeometry(layout.Geometry{
		ContainerLeft:  req.ContainerLeft,
		ContainerWidth: req.ContainerWidth,
		ViewportWidth:  req.ViewportWidth,
	})
	writeJSON(w, http.StatusOK, st)
}

// Pointer handles POST /api/layout/pointer.
//
//	@Summary		Deliver a pointer or touch event to the divider
//	@Tags			layout
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PointerRequest	true	"Pointer event"
//	@Success		200		{object}	layout.State
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layout/pointer [post]
func (h *Handler) Pointer(w http.ResponseWriter, r *http.Request) {
	var req PointerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "pointer", err)
		return
	}
	writeJSON(w, http.StatusOK, h.sess.Pointer(req.event()))
}
