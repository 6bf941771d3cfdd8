package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nabilhamdi/waraqa/internal/config"
	"github.com/nabilhamdi/waraqa/internal/core"
	"github.com/nabilhamdi/waraqa/internal/core/ingest"
	"github.com/nabilhamdi/waraqa/internal/models"
)

type FileHandler struct {
	store    core.Store
	objects  core.ObjectStore
	ingestor ingest.Ingestor
	cfg      *config.Config
}

func NewFileHandler(store core.Store, objects core.ObjectStore, ing ingest.Ingestor, cfg *config.Config) *FileHandler {
	return &FileHandler{store: store, objects: objects, ingestor: ing, cfg: cfg}
}

// Upload validates the multipart file, stores its bytes, records the file
// as processing, and queues it for ingestion. Validation failures are
// rejected before anything is persisted.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	maxBytes := int64(h.cfg.MaxFileSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20)) // headroom for form overhead
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, fmt.Errorf("%w: file exceeds %dMB limit", core.ErrValidation, h.cfg.MaxFileSizeMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing file field", core.ErrValidation))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !h.allowedType(ext) {
		writeError(w, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, ext))
		return
	}
	if header.Size > maxBytes {
		writeError(w, fmt.Errorf("%w: file exceeds %dMB limit", core.ErrValidation, h.cfg.MaxFileSizeMB))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("read upload: %w", err))
		return
	}

	fileID := uuid.NewString()
	storedName := fileID + ext
	key := fmt.Sprintf("%s/%s/%s", userID, fileID, storedName)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if err := h.objects.Put(r.Context(), key, data, contentType); err != nil {
		writeError(w, fmt.Errorf("store upload: %w", err))
		return
	}

	record := &models.File{
		ID:               fileID,
		UserID:           userID,
		Filename:         storedName,
		OriginalFilename: header.Filename,
		FileType:         ext,
		FileSize:         header.Size,
		StoragePath:      key,
		Status:           models.FileStatusProcessing,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if err := h.store.CreateFile(r.Context(), record); err != nil {
		// keep storage consistent with the DB on failure
		_ = h.objects.Delete(r.Context(), key)
		writeError(w, err)
		return
	}

	h.ingestor.Enqueue(fileID)

	writeJSON(w, http.StatusCreated, record)
}

// List returns the user's files, newest first, paginated.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	page, limit := pagination(r, 20)
	files, total, err := h.store.ListFilesByUser(r.Context(), userID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files": files,
		"pagination": map[string]int{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages(total, limit),
		},
	})
}

// Get returns a single file owned by the caller.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	file, err := h.ownedFile(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// Status exposes the ingestion state for polling. Terminal states carry
// either the chunk metadata or the failure message.
func (h *FileHandler) Status(w http.ResponseWriter, r *http.Request) {
	file, err := h.ownedFile(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"id": file.ID, "status": file.Status}
	if file.ErrorMessage != "" {
		resp["error_message"] = file.ErrorMessage
	}
	if len(file.Metadata) > 0 {
		resp["metadata"] = file.Metadata
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete removes the file record, its chunks, and the stored bytes.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	file, err := h.ownedFile(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.DeleteFile(r.Context(), file.ID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.objects.Delete(r.Context(), file.StoragePath); err != nil {
		// record is gone; the orphaned object is only a storage leak
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "file deleted"})
}

// ownedFile loads the path file and enforces ownership.
func (h *FileHandler) ownedFile(r *http.Request) (*models.File, error) {
	userID, ok := userIDFrom(r)
	if !ok {
		return nil, core.ErrNotFound
	}
	file, err := h.store.GetFileByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if file == nil || file.UserID != userID {
		return nil, core.ErrNotFound
	}
	return file, nil
}

func (h *FileHandler) allowedType(ext string) bool {
	for _, t := range h.cfg.AllowedFileTypes {
		if strings.TrimSpace(t) == ext {
			return true
		}
	}
	return false
}
