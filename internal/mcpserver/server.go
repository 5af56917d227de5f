// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the mdpad document to LLM tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mdpad/internal/apperr"
	"github.com/starford/mdpad/internal/models"
	"github.com/starford/mdpad/internal/session"
)

// Resource URIs.
const (
	DocumentURI = "mdpad://document"
	DialectURI  = "mdpad://dialect"
)

// Server wraps the MCP server with mdpad tools.
type Server struct {
	mcp  *server.MCPServer
	sess *session.Session
}

// New creates a new MCP server with all mdpad tools registered.
func New(sess *session.Session, version string) *Server {
	s := &Server{sess: sess}

	s.mcp = server.NewMCPServer(
		"mdpad",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the current Markdown document. The first line is the "+
			"document checksum, usable as if_match for write_document."),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("write_document",
		mcp.WithDescription("Replace the whole document. See the mdpad://dialect resource "+
			"for the supported Markdown."),
		mcp.WithString("text", mcp.Required(), mcp.Description("New Markdown text (may be empty)")),
		mcp.WithString("if_match", mcp.Description("Checksum from read_document; the write fails if the document changed")),
	), s.writeDocument)

	s.mcp.AddTool(mcp.NewTool("preview_html",
		mcp.WithDescription("Return the rendered HTML of the current document."),
	), s.previewHTML)

	s.mcp.AddTool(mcp.NewTool("reset_document",
		mcp.WithDescription("Start a new file: replace the document with the welcome text."),
	), s.resetDocument)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List Markdown files in the workspace."),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("open_file",
		mcp.WithDescription("Load a workspace file into the document and link it for live reload."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file (e.g. folder/note.md)")),
	), s.openFile)

	s.mcp.AddTool(mcp.NewTool("save_file",
		mcp.WithDescription("Write the document to a workspace file. Without a path the linked "+
			"file is used, or a new untitled file is created."),
		mcp.WithString("path", mcp.Description("Relative path (must end with .md)")),
		mcp.WithBoolean("overwrite", mcp.Description("Allow replacing an existing file other than the linked one")),
	), s.saveFile)

	s.mcp.AddTool(mcp.NewTool("set_theme",
		mcp.WithDescription("Switch the editor theme."),
		mcp.WithString("theme", mcp.Required(), mcp.Enum(models.ThemeLight, models.ThemeDark)),
	), s.setTheme)

	s.mcp.AddTool(mcp.NewTool("set_font_size",
		mcp.WithDescription("Change the editor font size in pixels."),
		mcp.WithNumber("size", mcp.Required(),
			mcp.Min(models.MinFontSize), mcp.Max(models.MaxFontSize)),
	), s.setFontSize)

	s.mcp.AddTool(mcp.NewTool("export_markdown",
		mcp.WithDescription("Return the document as it would be downloaded (markdown-content.md)."),
	), s.exportMarkdown)

	s.mcp.AddResource(
		mcp.NewResource(DocumentURI, "Current Document",
			mcp.WithResourceDescription("The Markdown text currently open in the editor."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(DialectURI, "Markdown Dialect",
			mcp.WithResourceDescription("Markdown features the editor renders."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDialectResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("document changed since it was read; read it again")
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.sess.Snapshot()
	return mcp.NewToolResultText(snap.Checksum + "\n" + snap.Text), nil
}

func (s *Server) writeDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := s.sess.SetText(ctx, text, req.GetString("if_match", ""))
	if err != nil {
		return toolError(err), nil
	}
	msg := fmt.Sprintf("saved revision %d (%s)", snap.Revision, snap.Checksum)
	if snap.RenderFailed {
		msg += "; preview could not be rendered"
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) previewHTML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.sess.Snapshot().HTML), nil
}

func (s *Server) resetDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.sess.Reset(ctx)
	return mcp.NewToolResultText(fmt.Sprintf("reset to welcome document (revision %d)", snap.Revision)), nil
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.sess.ListFiles()
	if err != nil {
		return toolError(err), nil
	}
	if len(files) == 0 {
		return mcp.NewToolResultText("no files found"), nil
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) openFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := s.sess.OpenFile(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("opened: %s (%d bytes)", path, len(snap.Text))), nil
}

func (s *Server) saveFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.sess.SaveFile(ctx, req.GetString("path", ""), req.GetBool("overwrite", false))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("saved: " + path), nil
}

func (s *Server) setTheme(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	theme, err := req.RequireString("theme")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prefs, err := s.sess.SetTheme(ctx, theme)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("theme: " + prefs.Theme), nil
}

func (s *Server) setFontSize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	size, err := req.RequireFloat("size")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if size != math.Trunc(size) {
		return mcp.NewToolResultError(fmt.Sprintf("size must be a whole number, got %v", size)), nil
	}
	prefs, err := s.sess.SetFontSize(ctx, int(size))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("font size: %d", prefs.FontSize)), nil
}

func (s *Server) exportMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := s.sess.ExportMarkdown()
	meta, _ := json.Marshal(map[string]any{"name": a.Name, "content_type": a.ContentType, "size": len(a.Data)})
	return mcp.NewToolResultText(string(meta) + "\n" + string(a.Data)), nil
}

func (s *Server) readDocumentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentURI,
			MIMEType: "text/markdown",
			Text:     s.sess.Snapshot().Text,
		},
	}, nil
}

func (s *Server) readDialectResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DialectURI,
			MIMEType: "text/markdown",
			Text:     DialectGuide,
		},
	}, nil
}
