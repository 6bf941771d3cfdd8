package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nabilhamdi/waraqa/internal/core"
	"github.com/nabilhamdi/waraqa/internal/models"
)

type ChatHandler struct {
	store core.Store
}

func NewChatHandler(store core.Store) *ChatHandler {
	return &ChatHandler{store: store}
}

type createChatRequest struct {
	Title    string               `json:"title"`
	FileID   string               `json:"file_id"`
	Settings *models.ChatSettings `json:"settings"`
}

type updateChatRequest struct {
	Title    *string              `json:"title"`
	Settings *models.ChatSettings `json:"settings"`
}

// Create starts a new chat, optionally bound to one of the caller's files.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid body", core.ErrValidation))
		return
	}

	if req.FileID != "" {
		file, err := h.store.GetFileByID(r.Context(), req.FileID)
		if err != nil {
			writeError(w, err)
			return
		}
		if file == nil || file.UserID != userID {
			writeError(w, fmt.Errorf("%w: file", core.ErrNotFound))
			return
		}
	}

	settings := models.DefaultChatSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	if err := validateSettings(settings); err != nil {
		writeError(w, err)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New chat"
	}

	chat := &models.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		FileID:    req.FileID,
		Settings:  settings,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.store.CreateChat(r.Context(), chat); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, chat)
}

// List returns the caller's chats with message counts, newest activity first.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	page, limit := pagination(r, 20)
	chats, total, err := h.store.ListChatsByUser(r.Context(), userID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chats": chats,
		"pagination": map[string]int{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages(total, limit),
		},
	})
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chat, err := h.ownedChat(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// Update changes the chat's title and/or settings. The file binding is
// fixed at creation.
func (h *ChatHandler) Update(w http.ResponseWriter, r *http.Request) {
	chat, err := h.ownedChat(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid body", core.ErrValidation))
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, fmt.Errorf("%w: title cannot be empty", core.ErrValidation))
			return
		}
		chat.Title = title
	}
	if req.Settings != nil {
		if err := validateSettings(*req.Settings); err != nil {
			writeError(w, err)
			return
		}
		chat.Settings = *req.Settings
	}
	chat.UpdatedAt = time.Now()

	if err := h.store.UpdateChat(r.Context(), chat); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// Delete removes the chat and all its messages.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chat, err := h.ownedChat(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.DeleteChat(r.Context(), chat.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "chat deleted"})
}

func (h *ChatHandler) ownedChat(r *http.Request) (*models.Chat, error) {
	userID, ok := userIDFrom(r)
	if !ok {
		return nil, core.ErrNotFound
	}
	chat, err := h.store.GetChatByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if chat == nil || chat.UserID != userID {
		return nil, core.ErrNotFound
	}
	return chat, nil
}

func validateSettings(s models.ChatSettings) error {
	if s.CreativityLevel < 0 || s.CreativityLevel > 100 {
		return fmt.Errorf("%w: creativity_level must be between 0 and 100", core.ErrValidation)
	}
	return nil
}
