package followup

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

// Handler exposes the pending follow-up queue to the back office.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a follow-up handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if store == nil {
		panic("followup: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// ListPending handles GET /admin/followups?limit=50.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	tickets, err := h.store.ListPending(r.Context(), limit)
	if err != nil {
		h.logger.Error("follow-up list failed", "error", err)
		http.Error(w, "failed to list follow-ups", http.StatusInternalServerError)
		return
	}
	if tickets == nil {
		tickets = []Ticket{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"followups": tickets})
}
