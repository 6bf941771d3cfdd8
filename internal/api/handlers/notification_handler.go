package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nabilhamdi/waraqa/internal/core"
)

type NotificationHandler struct {
	store core.Store
}

func NewNotificationHandler(store core.Store) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	page, limit := pagination(r, 20)
	items, total, err := h.store.ListNotificationsByUser(r.Context(), userID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"pagination": map[string]int{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages(total, limit),
		},
	})
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.store.MarkNotificationRead(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "notification read"})
}
