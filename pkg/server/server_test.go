package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"google.golang.org/genai"

	"github.com/acordeiro/cellbook/pkg/domain"
	"github.com/acordeiro/cellbook/pkg/generate"
	"github.com/acordeiro/cellbook/pkg/notebook"
	"github.com/acordeiro/cellbook/pkg/runner"
	"github.com/acordeiro/cellbook/pkg/sandbox/js"
	"github.com/acordeiro/cellbook/pkg/store/sqlite"
	"github.com/acordeiro/cellbook/pkg/tools"
)

type stubInvoker struct{}

func (stubInvoker) Invoke(ctx context.Context, fullName string, params any) (any, error) {
	return map[string]any{"ok": true}, nil
}

type stubGen struct {
	raw json.RawMessage
}

func (g *stubGen) GenerateObject(ctx context.Context, prompt string, schema *genai.Schema) (json.RawMessage, error) {
	return g.raw, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	registry := tools.DefaultCatalog()
	proxy := tools.NewProxy(registry, stubInvoker{})
	gen := &stubGen{raw: json.RawMessage(`{"cellsToAdd": [{"type": "script", "content": "return 1;"}]}`)}
	r := runner.New(js.New(), registry, proxy, generate.New(gen, registry))

	return New(s, r, registry)
}

func seedNotebook(t *testing.T, srv *Server, cells ...domain.Cell) *domain.Notebook {
	t.Helper()
	nb := notebook.New("/test")
	for _, c := range cells {
		nb = notebook.AppendCell(nb, c)
	}
	if err := srv.notebooks.Create(context.Background(), nb); err != nil {
		t.Fatalf("seed notebook: %v", err)
	}
	return nb
}

func decodeNotebook(t *testing.T, rec *httptest.ResponseRecorder) *domain.Notebook {
	t.Helper()
	var nb domain.Notebook
	if err := json.NewDecoder(rec.Body).Decode(&nb); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return &nb
}

func TestCreateNotebook(t *testing.T) {
	srv := newTestServer(t)

	body := bytes.NewBufferString(`{"path": "/2025/aug/31/index.json"}`)
	req := httptest.NewRequest("POST", "/api/notebooks", body)
	rec := httptest.NewRecorder()
	srv.handleCreateNotebook(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	nb := decodeNotebook(t, rec)
	if nb.Path != "/2025/aug/31/index.json" {
		t.Errorf("path = %q", nb.Path)
	}
	if len(nb.Cells) != 1 || nb.Cells[0].Type != domain.CellTypeMarkdown {
		t.Errorf("new notebook not seeded with a markdown cell: %+v", nb.Cells)
	}
}

func TestGetNotebookNotFound(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/notebooks/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	srv.handleGetNotebook(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAddCellAfterIndex(t *testing.T) {
	srv := newTestServer(t)
	nb := seedNotebook(t, srv, notebook.NewCell(domain.CellTypeScript, "return 1;"))

	body := bytes.NewBufferString(`{"type": "markdown", "content": "between", "after": 0}`)
	req := httptest.NewRequest("POST", "/api/notebooks/"+nb.ID+"/cells", body)
	req.SetPathValue("id", nb.ID)
	rec := httptest.NewRecorder()
	srv.handleAddCell(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decodeNotebook(t, rec)
	if len(got.Cells) != 3 {
		t.Fatalf("len(cells) = %d, want 3", len(got.Cells))
	}
	if got.Cells[1].Content != "between" {
		t.Errorf("cells[1].Content = %q, want %q", got.Cells[1].Content, "between")
	}
}

func TestUpdateCellContent(t *testing.T) {
	srv := newTestServer(t)
	nb := seedNotebook(t, srv)

	body := bytes.NewBufferString(`{"content": "updated text"}`)
	req := httptest.NewRequest("PUT", "/api/notebooks/"+nb.ID+"/cells/0", body)
	req.SetPathValue("id", nb.ID)
	req.SetPathValue("index", "0")
	rec := httptest.NewRecorder()
	srv.handleUpdateCell(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	stored, err := srv.notebooks.Get(context.Background(), nb.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Cells[0].Content != "updated text" {
		t.Errorf("persisted content = %q", stored.Cells[0].Content)
	}
}

func TestUpdateCellIndexOutOfRange(t *testing.T) {
	srv := newTestServer(t)
	nb := seedNotebook(t, srv)

	body := bytes.NewBufferString(`{"content": "x"}`)
	req := httptest.NewRequest("PUT", "/api/notebooks/"+nb.ID+"/cells/9", body)
	req.SetPathValue("id", nb.ID)
	req.SetPathValue("index", "9")
	rec := httptest.NewRecorder()
	srv.handleUpdateCell(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteSoleCellClears(t *testing.T) {
	srv := newTestServer(t)
	nb := seedNotebook(t, srv)

	req := httptest.NewRequest("DELETE", "/api/notebooks/"+nb.ID+"/cells/0", nil)
	req.SetPathValue("id", nb.ID)
	req.SetPathValue("index", "0")
	rec := httptest.NewRecorder()
	srv.handleDeleteCell(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decodeNotebook(t, rec)
	if len(got.Cells) != 1 {
		t.Errorf("len(cells) = %d, want 1 (sole cell clears, never removes)", len(got.Cells))
	}
}

func TestRunScriptCellPersists(t *testing.T) {
	srv := newTestServer(t)
	nb := seedNotebook(t, srv, notebook.NewCell(domain.CellTypeScript, "return 40 + 2;"))

	req := httptest.NewRequest("POST", "/api/notebooks/"+nb.ID+"/cells/1/run", nil)
	req.SetPathValue("id", nb.ID)
	req.SetPathValue("index", "1")
	rec := httptest.NewRecorder()
	srv.handleRunCell(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	stored, err := srv.notebooks.Get(context.Background(), nb.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	cell := stored.Cells[1]
	if cell.Status != domain.StatusSuccess {
		t.Fatalf("persisted status = %q: %v", cell.Status, cell.Outputs)
	}
	if cell.Outputs[1].Content != "42" {
		t.Errorf("persisted json output = %q, want 42", cell.Outputs[1].Content)
	}
}

func TestRunMarkdownCellPersistsGeneratedCells(t *testing.T) {
	srv := newTestServer(t)
	nb := seedNotebook(t, srv)

	req := httptest.NewRequest("POST", "/api/notebooks/"+nb.ID+"/cells/0/run", nil)
	req.SetPathValue("id", nb.ID)
	req.SetPathValue("index", "0")
	rec := httptest.NewRecorder()
	srv.handleRunCell(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	stored, err := srv.notebooks.Get(context.Background(), nb.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(stored.Cells) != 2 {
		t.Fatalf("len(cells) = %d, want 2 after generation", len(stored.Cells))
	}
	if stored.Cells[1].Type != domain.CellTypeScript || stored.Cells[1].Content != "return 1;" {
		t.Errorf("generated cell = %+v", stored.Cells[1])
	}
}

func TestRunCellBadIndex(t *testing.T) {
	srv := newTestServer(t)
	nb := seedNotebook(t, srv)

	req := httptest.NewRequest("POST", "/api/notebooks/"+nb.ID+"/cells/7/run", nil)
	req.SetPathValue("id", nb.ID)
	req.SetPathValue("index", "7")
	rec := httptest.NewRecorder()
	srv.handleRunCell(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListTools(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/tools", nil)
	rec := httptest.NewRecorder()
	srv.handleListTools(rec, req)

	var descs []domain.ToolDescriptor
	if err := json.NewDecoder(rec.Body).Decode(&descs); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(descs) != 6 {
		t.Errorf("len(tools) = %d, want 6", len(descs))
	}
}

func TestExecutingIndicator(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/executing", nil)
	rec := httptest.NewRecorder()
	srv.handleExecuting(rec, req)

	var resp map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp["executing"] {
		t.Error("executing = true with no run in flight")
	}
}
