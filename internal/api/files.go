package api

import (
	"io"
	"net/http"

	"github.com/starford/mdpad/internal/models"
)

const maxUploadBytes = 50 << 20 // 50 MB

// ImportDocument handles POST /api/document/import (multipart/form-data,
// field "file"). The buffer is replaced only if the file is UTF-8 text.
//
//	@Summary		Load an uploaded file into the buffer
//	@Tags			document
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Markdown or text file"
//	@Success		200		{object}	DocumentResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/document/import [post]
func (h *Handler) ImportDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	snap, err := h.sess.Import(r.Context(), data)
	if err != nil {
		writeError(w, "import document", err)
		return
	}
	writeJSON(w, http.StatusOK, h.documentResponse(snap))
}

// ExportMarkdown handles GET /api/export/markdown.
//
//	@Summary		Download the buffer as markdown-content.md
//	@Tags			export
//	@Produce		text/markdown
//	@Success		200	{file}	file
//	@Security		BearerAuth
//	@Router			/export/markdown [get]
func (h *Handler) ExportMarkdown(w http.ResponseWriter, _ *http.Request) {
	writeArtifact(w, h.sess.ExportMarkdown())
}

// ExportBundle handles GET /api/export/bundle.
//
//	@Summary		Download markdown-content.zip with content.md and preview.html
//	@Tags			export
//	@Produce		application/zip
//	@Success		200	{file}		file
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export/bundle [get]
func (h *Handler) ExportBundle(w http.ResponseWriter, _ *http.Request) {
	a, err := h.sess.ExportBundle()
	if err != nil {
		writeError(w, "export bundle", err)
		return
	}
	writeArtifact(w, a)
}

// ListFiles handles GET /api/files.
//
//	@Summary		List Markdown files in the workspace
//	@Tags			files
//	@Produce		json
//	@Success		200	{object}	FileListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, _ *http.Request) {
	files, err := h.sess.ListFiles()
	if err != nil {
		writeError(w, "list files", err)
		return
	}
	if files == nil {
		files = []models.FileInfo{}
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files})
}

// OpenFile handles POST /api/files/open.
//
//	@Summary		Load a workspace file into the buffer and link it
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenFileRequest	true	"Workspace path"
//	@Success		200		{object}	DocumentResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/open [post]
func (h *Handler) OpenFile(w http.ResponseWriter, r *http.Request) {
	var req OpenFileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "open file", err)
		return
	}
	snap, err := h.sess.OpenFile(r.Context(), req.Path)
	if err != nil {
		writeError(w, "open file", err)
		return
	}
	writeJSON(w, http.StatusOK, h.documentResponse(snap))
}

// SaveFile handles POST /api/files/save.
//
//	@Summary		Write the buffer to a workspace file
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveFileRequest	true	"Target path"
//	@Success		200		{object}	SaveFileResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/save [post]
func (h *Handler) SaveFile(w http.ResponseWriter, r *http.Request) {
	var req SaveFileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "save file", err)
		return
	}
	path, err := h.sess.SaveFile(r.Context(), req.Path, req.Overwrite)
	if err != nil {
		writeError(w, "save file", err)
		return
	}
	writeJSON(w, http.StatusOK, SaveFileResponse{Path: path, Checksum: h.sess.Snapshot().Checksum})
}
