package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/nabilhamdi/waraqa/internal/core"
)

// writeJSON writes a JSON body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

// writeError translates the failure taxonomy into transport responses.
// Ownership violations surface as not-found so resource existence never
// leaks across users.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, core.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, core.ErrUnsupportedFormat):
		status, msg = http.StatusBadRequest, err.Error()
	default:
		log.Printf("api: %v", err)
	}

	writeJSON(w, status, map[string]any{
		"error":     msg,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// userIDFrom pulls the authenticated user id set by the JWT middleware.
func userIDFrom(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value("user_id").(string)
	return userID, ok
}

// pagination reads ?page and ?limit with defaults and caps.
func pagination(r *http.Request, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// pages computes the page count for a paginated listing.
func pages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
