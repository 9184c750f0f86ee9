package unanswered

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wolfman30/studio-concierge/pkg/logging"
)

// Lister reads recorded unanswered queries.
type Lister interface {
	List(ctx context.Context, limit int) ([]Query, error)
}

// Handler serves the admin review endpoint for unanswered queries.
type Handler struct {
	store  Lister
	logger *logging.Logger
}

// NewHandler creates an admin handler.
func NewHandler(store Lister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// HandleList returns recent unanswered queries: GET /admin/unanswered?limit=N.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "unanswered query storage not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	queries, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("unanswered: failed to list queries", "error", err)
		http.Error(w, "failed to list unanswered queries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queries": queries,
		"count":   len(queries),
	})
}
