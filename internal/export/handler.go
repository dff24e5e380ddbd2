package export

import (
	"encoding/json"
	"net/http"

	"github.com/ashdownmotors/garage-platform/internal/ledger"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

// Handler exposes booking exports to the back office.
type Handler struct {
	exporter *Exporter
	logger   *logging.Logger
}

// NewHandler creates an export handler.
func NewHandler(exporter *Exporter, logger *logging.Logger) *Handler {
	if exporter == nil {
		panic("export: exporter required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{exporter: exporter, logger: logger}
}

// Download streams the ledger as a CSV attachment.
// GET /admin/bookings/export?search=...&status=...
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.csv"`)

	if _, err := h.exporter.WriteCSV(r.Context(), w, filter); err != nil {
		// Headers are gone by now; log and cut the stream short.
		h.logger.Error("booking export failed", "error", err)
	}
}

// Archive uploads a CSV snapshot to S3.
// POST /admin/bookings/export/archive
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	result, err := h.exporter.ExportToS3(r.Context(), filterFromQuery(r))
	if err != nil {
		h.logger.Error("booking archive failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func filterFromQuery(r *http.Request) ledger.Filter {
	return ledger.Filter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}
}
