package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/nabilhamdi/waraqa/internal/config"
	db "github.com/nabilhamdi/waraqa/internal/core/database"
	"github.com/nabilhamdi/waraqa/internal/models"
)

// stubIngestor records enqueued file ids without processing them.
type stubIngestor struct {
	enqueued []string
}

func (s *stubIngestor) Start(context.Context, int)                  {}
func (s *stubIngestor) Enqueue(fileID string)                       { s.enqueued = append(s.enqueued, fileID) }
func (s *stubIngestor) ProcessOne(context.Context, string) error    { return nil }

type fakeObjects struct {
	data map[string][]byte
}

func newFakeObjects() *fakeObjects { return &fakeObjects{data: map[string][]byte{}} }

func (f *fakeObjects) Put(_ context.Context, key string, data []byte, _ string) error {
	f.data[key] = data
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	d, ok := f.data[key]
	if !ok {
		return nil, fmt.Errorf("no object at %s", key)
	}
	return d, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxFileSizeMB:    1,
		AllowedFileTypes: []string{".pdf", ".docx", ".doc", ".txt", ".md"},
	}
}

// withUser injects the authenticated user id the way the JWT middleware does.
func withUser(userID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), "user_id", userID)))
	})
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

type fileFixture struct {
	store    *db.MemoryStore
	objects  *fakeObjects
	ingestor *stubIngestor
	router   http.Handler
}

func newFileFixture(t *testing.T) *fileFixture {
	t.Helper()
	store := db.NewMemoryStore()
	objects := newFakeObjects()
	ingestor := &stubIngestor{}
	h := NewFileHandler(store, objects, ingestor, testConfig())

	r := chi.NewRouter()
	r.Post("/files", h.Upload)
	r.Get("/files", h.List)
	r.Get("/files/{id}", h.Get)
	r.Get("/files/{id}/status", h.Status)
	r.Delete("/files/{id}", h.Delete)

	return &fileFixture{store: store, objects: objects, ingestor: ingestor, router: withUser("user-1", r)}
}

func TestFileUpload_AcceptsAndQueues(t *testing.T) {
	f := newFileFixture(t)

	body, contentType := multipartBody(t, "notes.txt", []byte("some notes"))
	req := httptest.NewRequest(http.MethodPost, "/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var created models.File
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != models.FileStatusProcessing {
		t.Errorf("status = %q, want processing", created.Status)
	}
	if created.OriginalFilename != "notes.txt" || created.FileType != ".txt" {
		t.Errorf("file record = %+v", created)
	}

	if len(f.ingestor.enqueued) != 1 || f.ingestor.enqueued[0] != created.ID {
		t.Errorf("enqueued = %v, want [%s]", f.ingestor.enqueued, created.ID)
	}
	if len(f.objects.data) != 1 {
		t.Errorf("stored %d objects, want 1", len(f.objects.data))
	}
	stored, err := f.store.GetFileByID(context.Background(), created.ID)
	if err != nil || stored == nil {
		t.Fatalf("file record not persisted: %v", err)
	}
}

func TestFileUpload_RejectsBadExtension(t *testing.T) {
	f := newFileFixture(t)

	body, contentType := multipartBody(t, "malware.exe", []byte("MZ"))
	req := httptest.NewRequest(http.MethodPost, "/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	// rejected before anything was persisted
	if len(f.objects.data) != 0 {
		t.Error("object stored for a rejected upload")
	}
	if _, total, _ := f.store.ListFilesByUser(context.Background(), "user-1", 1, 10); total != 0 {
		t.Error("file record created for a rejected upload")
	}
	if len(f.ingestor.enqueued) != 0 {
		t.Error("rejected upload was queued for ingestion")
	}
}

func TestFileUpload_RejectsOversize(t *testing.T) {
	f := newFileFixture(t)

	// 1MB cap in testConfig; send 2MB
	body, contentType := multipartBody(t, "big.txt", bytes.Repeat([]byte("a"), 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(f.objects.data) != 0 || len(f.ingestor.enqueued) != 0 {
		t.Error("oversized upload left persisted state behind")
	}
}

func TestFileUpload_MissingFileField(t *testing.T) {
	f := newFileFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFileStatus_Polling(t *testing.T) {
	f := newFileFixture(t)
	ctx := context.Background()

	file := &models.File{ID: "f1", UserID: "user-1", OriginalFilename: "doc.txt", FileType: ".txt", Status: models.FileStatusProcessing}
	if err := f.store.CreateFile(ctx, file); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/f1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != models.FileStatusProcessing {
		t.Errorf("status = %v, want processing", resp["status"])
	}

	// after a failure the message is exposed
	if err := f.store.UpdateFileStatus(ctx, "f1", models.FileStatusError, "extraction failed", nil); err != nil {
		t.Fatalf("UpdateFileStatus: %v", err)
	}
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/f1/status", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != models.FileStatusError || resp["error_message"] != "extraction failed" {
		t.Errorf("resp = %v", resp)
	}
}

func TestFileHandlers_OwnershipHidesForeignFiles(t *testing.T) {
	f := newFileFixture(t)

	foreign := &models.File{ID: "f2", UserID: "someone-else", Status: models.FileStatusCompleted}
	if err := f.store.CreateFile(context.Background(), foreign); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	for _, path := range []string{"/files/f2", "/files/f2/status"} {
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/files/f2", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("DELETE foreign file = %d, want 404", rec.Code)
	}
}

func TestFileDelete_RemovesRecordAndBytes(t *testing.T) {
	f := newFileFixture(t)
	ctx := context.Background()

	file := &models.File{ID: "f1", UserID: "user-1", StoragePath: "user-1/f1/doc.txt", Status: models.FileStatusCompleted}
	if err := f.store.CreateFile(ctx, file); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	f.objects.data["user-1/f1/doc.txt"] = []byte("bytes")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/files/f1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	if got, _ := f.store.GetFileByID(ctx, "f1"); got != nil {
		t.Error("file record still present")
	}
	if len(f.objects.data) != 0 {
		t.Error("object bytes still present")
	}
}

func TestFileList_Pagination(t *testing.T) {
	f := newFileFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		file := &models.File{ID: fmt.Sprintf("f%d", i), UserID: "user-1", Status: models.FileStatusCompleted}
		if err := f.store.CreateFile(ctx, file); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files?page=1&limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"total":3`) || !strings.Contains(body, `"pages":2`) {
		t.Errorf("pagination block missing from %s", body)
	}
}
