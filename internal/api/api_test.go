package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/mdpad/internal/layout"
	"github.com/starford/mdpad/internal/persist"
	"github.com/starford/mdpad/internal/session"
	"github.com/starford/mdpad/internal/sse"
	"github.com/starford/mdpad/internal/testutil"
)

// testEnv sets up a temp workspace, SQLite store, session and router.
// A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) (*session.Session, http.Handler) {
	t.Helper()
	sess, router, _ := testEnvWithWorkspace(t, authToken != "", authToken, nil)
	return sess, router
}

func testEnvWithWorkspace(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*session.Session, http.Handler, string) {
	t.Helper()

	dir, files := testutil.TestWorkspace(t)
	r, exp := testutil.TestPipeline(t)
	logger := testutil.Logger()

	sess := session.New(r, exp, persist.NewAdapter(testutil.TestStore(t), logger),
		session.WithLogger(logger),
		session.WithFiles(files),
	)
	t.Cleanup(func() { _ = sess.Close() })

	router := NewRouter(sess, authEnabled, authToken, sseHandler)
	return sess, router, dir
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeDocument(t *testing.T, w *httptest.ResponseRecorder) DocumentResponse {
	t.Helper()
	var doc DocumentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	return doc
}

func TestGetDocument_Welcome(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/document", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	doc := decodeDocument(t, w)
	if doc.Title != "Welcome to Markdown Editor" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.LineCount < 10 || doc.Checksum == "" || doc.HTML == "" {
		t.Errorf("doc = %+v", doc)
	}
	if w.Header().Get("ETag") != `"`+doc.Checksum+`"` {
		t.Errorf("etag = %q", w.Header().Get("ETag"))
	}
}

func TestUpdateDocument(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPut, "/document", map[string]string{"text": "# Hi"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	doc := decodeDocument(t, w)
	if doc.Text != "# Hi" || !strings.Contains(doc.HTML, "Hi</h1>") {
		t.Errorf("doc = %+v", doc)
	}

	// Empty text is a valid buffer.
	w = doJSON(t, router, http.MethodPut, "/document", map[string]string{"text": ""})
	if w.Code != http.StatusOK {
		t.Fatalf("empty text status = %d", w.Code)
	}
	if doc := decodeDocument(t, w); doc.Text != "" || doc.LineCount != 1 {
		t.Errorf("doc = %+v", doc)
	}
}

func TestUpdateDocument_MissingText(t *testing.T) {
	_, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodPut, "/document", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")

	doc := decodeDocument(t, doJSON(t, router, http.MethodGet, "/document", nil))

	body, _ := json.Marshal(map[string]string{"text": "v2"})
	req := httptest.NewRequest(http.MethodPut, "/document", bytes.NewReader(body))
	req.Header.Set("If-Match", `"`+doc.Checksum+`"`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("matching update = %d", w.Code)
	}

	// The old checksum is now stale.
	body, _ = json.Marshal(map[string]string{"text": "v3"})
	req = httptest.NewRequest(http.MethodPut, "/document", bytes.NewReader(body))
	req.Header.Set("If-Match", doc.Checksum)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("stale update = %d, want 409", w.Code)
	}
}

func TestResetDocument(t *testing.T) {
	_, router := testEnv(t, "")
	doJSON(t, router, http.MethodPut, "/document", map[string]string{"text": "scratch"})

	w := doJSON(t, router, http.MethodPost, "/document/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if doc := decodeDocument(t, w); doc.Text != session.WelcomeDocument {
		t.Errorf("text = %q", doc.Text)
	}
}

func TestHandleKey(t *testing.T) {
	_, router := testEnv(t, "")
	doJSON(t, router, http.MethodPut, "/document", map[string]string{"text": "ab"})

	w := doJSON(t, router, http.MethodPost, "/document/keys", map[string]any{
		"key":       "Tab",
		"selection": map[string]int{"start": 1, "end": 1},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res KeyResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Handled || res.Document == nil || res.Document.Text != "a  b" || res.Selection.Start != 3 {
		t.Errorf("res = %+v", res)
	}

	w = doJSON(t, router, http.MethodPost, "/document/keys", map[string]any{"key": "x"})
	res = KeyResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Handled || res.Document != nil {
		t.Errorf("plain key handled: %+v", res)
	}
}

func TestScroll(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/document/scroll", map[string]any{"panel": "editor", "scroll_top": 80})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res PanelsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Editor.ScrollTop != 80 || res.Editor.GutterScrollTop != 80 || res.Preview.ScrollTop != 0 {
		t.Errorf("res = %+v", res)
	}

	w = doJSON(t, router, http.MethodPost, "/document/scroll", map[string]any{"panel": "gutter", "scroll_top": 10})
	if w.Code != http.StatusBadRequest {
		t.Errorf("gutter scroll = %d, want 400", w.Code)
	}
}

func TestPreview(t *testing.T) {
	_, router := testEnv(t, "")
	doJSON(t, router, http.MethodPut, "/document", map[string]string{"text": "# Hi"})

	w := doJSON(t, router, http.MethodGet, "/document/preview", nil)
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "Hi</h1>") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/document/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportDocument(t *testing.T) {
	_, router := testEnv(t, "")

	w := uploadFile(t, router, "notes.md", []byte("# Imported"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if doc := decodeDocument(t, w); doc.Text != "# Imported" {
		t.Errorf("text = %q", doc.Text)
	}
}

func TestImportDocument_Binary(t *testing.T) {
	sess, router := testEnv(t, "")
	before := sess.Snapshot().Text

	w := uploadFile(t, router, "image.png", []byte{0x89, 'P', 'N', 'G', 0xff, 0xfe})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if sess.Snapshot().Text != before {
		t.Error("buffer changed after rejected import")
	}
}

func TestImportDocument_MissingFileField(t *testing.T) {
	_, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "x")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/document/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExportMarkdown(t *testing.T) {
	_, router := testEnv(t, "")
	doJSON(t, router, http.MethodPut, "/document", map[string]string{"text": "# Hi"})

	w := doJSON(t, router, http.MethodGet, "/export/markdown", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "markdown-content.md") {
		t.Errorf("disposition = %q", cd)
	}
	if w.Body.String() != "# Hi" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestExportBundle(t *testing.T) {
	_, router := testEnv(t, "")
	doJSON(t, router, http.MethodPut, "/document", map[string]string{"text": "# Hi"})

	w := doJSON(t, router, http.MethodGet, "/export/bundle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/zip" {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}
	data := w.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["content.md"] || !names["preview.html"] {
		t.Errorf("entries = %v", names)
	}
}

func TestPreferences(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/preferences", nil)
	var p PreferencesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if p.Theme != "light" || p.FontSize != 14 || p.GutterFontSize != 12 {
		t.Errorf("defaults = %+v", p)
	}

	w = doJSON(t, router, http.MethodPut, "/preferences", map[string]any{"font_size": 20})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	p = PreferencesResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if p.Theme != "light" || p.FontSize != 20 {
		t.Errorf("partial update = %+v", p)
	}

	for _, body := range []map[string]any{
		{"font_size": 11},
		{"font_size": 25},
		{"theme": "solarized"},
	} {
		if w := doJSON(t, router, http.MethodPut, "/preferences", body); w.Code != http.StatusBadRequest {
			t.Errorf("%v: status = %d, want 400", body, w.Code)
		}
	}
}

func TestLayoutDrag(t *testing.T) {
	_, router := testEnv(t, "")

	doJSON(t, router, http.MethodPut, "/layout/geometry", map[string]float64{
		"container_left": 100, "container_width": 1000, "viewport_width": 1200,
	})
	doJSON(t, router, http.MethodPost, "/layout/pointer", map[string]any{"kind": "down", "target": "divider", "x": 600})

	w := doJSON(t, router, http.MethodPost, "/layout/pointer", map[string]any{"kind": "move", "x": 50})
	var st layout.State
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if !st.Dragging || st.EditorShare != 20 || st.PreviewShare != 80 {
		t.Errorf("clamped state = %+v", st)
	}

	w = doJSON(t, router, http.MethodPost, "/layout/pointer", map[string]any{"kind": "up"})
	st = layout.State{}
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Dragging {
		t.Error("still dragging after up")
	}

	// Listeners are gone: a later move changes nothing.
	w = doJSON(t, router, http.MethodPost, "/layout/pointer", map[string]any{"kind": "move", "x": 900})
	st = layout.State{}
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.EditorShare != 20 {
		t.Errorf("move after release changed layout: %+v", st)
	}
}

func TestLayoutPointer_InvalidKind(t *testing.T) {
	_, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodPost, "/layout/pointer", map[string]any{"kind": "hover"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLayoutStacked(t *testing.T) {
	_, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodPut, "/layout/geometry", map[string]float64{
		"container_width": 600, "viewport_width": 600,
	})
	var st layout.State
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if !st.Stacked || st.EditorShare != 100 || st.PreviewShare != 100 {
		t.Errorf("state = %+v", st)
	}
}

func TestFiles(t *testing.T) {
	_, router, dir := testEnvWithWorkspace(t, false, "", nil)
	_ = os.WriteFile(filepath.Join(dir, "a.md"), []byte("# A"), 0o644)

	w := doJSON(t, router, http.MethodGet, "/files", nil)
	var list FileListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Files) != 1 || list.Files[0].Path != "a.md" {
		t.Fatalf("files = %+v", list.Files)
	}

	w = doJSON(t, router, http.MethodPost, "/files/open", map[string]string{"path": "a.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("open status = %d", w.Code)
	}
	if doc := decodeDocument(t, w); doc.Text != "# A" || doc.Linked != "a.md" {
		t.Errorf("doc = %+v", doc)
	}

	w = doJSON(t, router, http.MethodPost, "/files/open", map[string]string{"path": "missing.md"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing open = %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/files/save", map[string]any{"path": "b.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "b.md")); string(data) != "# A" {
		t.Errorf("b.md = %q", data)
	}

	w = doJSON(t, router, http.MethodPost, "/files/save", map[string]any{"path": "a.md"})
	if w.Code != http.StatusConflict {
		t.Errorf("save over existing = %d, want 409", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/files/open", map[string]string{"path": "../escape.md"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("traversal = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/document", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed get = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/document", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/document", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	broker := sse.NewBroker(sse.WithThrottle(50 * time.Millisecond))
	t.Cleanup(broker.Close)
	_, router, _ := testEnvWithWorkspace(t, authEnabled, token, broker)
	return router
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestAuthMiddleware_QueryTokenOnGet(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/document?access_token=secret123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("query token get = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenIgnoredOnWrite(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodPost, "/document/reset?access_token=secret123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token post = %d, want 401", w.Code)
	}
}
