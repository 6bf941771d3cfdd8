package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nabilhamdi/waraqa/internal/core"
	"github.com/nabilhamdi/waraqa/internal/core/engine"
	"github.com/nabilhamdi/waraqa/internal/models"
)

type MessageHandler struct {
	store  core.Store
	engine *engine.ChatEngine
}

func NewMessageHandler(store core.Store, eng *engine.ChatEngine) *MessageHandler {
	return &MessageHandler{store: store, engine: eng}
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// messageView is a message plus the citations attached to it.
type messageView struct {
	models.Message
	Sources []core.SourceRef `json:"sources,omitempty"`
}

// Send runs the full chat turn: persist the user message, retrieve,
// generate, persist the bot message with its sources.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid body", core.ErrValidation))
		return
	}

	result, err := h.engine.SendMessage(r.Context(), userID, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// client went away; nothing useful to write
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List returns the chat's messages in chronological order, each bot
// message carrying its sources.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chatID := chi.URLParam(r, "id")
	chat, err := h.store.GetChatByID(r.Context(), chatID)
	if err != nil {
		writeError(w, err)
		return
	}
	if chat == nil || chat.UserID != userID {
		writeError(w, core.ErrNotFound)
		return
	}

	page, limit := pagination(r, 50)
	msgs, total, err := h.store.ListMessagesByChat(r.Context(), chatID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		v := messageView{Message: m}
		if m.MessageType == models.MessageTypeBot {
			refs, err := h.store.ListMessageSources(r.Context(), m.ID)
			if err != nil {
				writeError(w, err)
				return
			}
			v.Sources = refs
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": views,
		"pagination": map[string]int{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages(total, limit),
		},
	})
}
