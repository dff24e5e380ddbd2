package dvla

import (
	"encoding/json"
	"net/http"

	"github.com/ashdownmotors/garage-platform/internal/registration"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

// Handler is the thin lookup proxy exposed to the public site. It keeps
// the upstream API key server-side and maps lookup failures onto HTTP
// statuses the front end can branch on.
type Handler struct {
	client *Client
	logger *logging.Logger
}

// NewHandler creates a vehicle lookup proxy handler.
func NewHandler(client *Client, logger *logging.Logger) *Handler {
	if client == nil {
		panic("dvla: client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{client: client, logger: logger}
}

// Lookup handles GET /vehicles/lookup?registration=AB12CDE.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	reg := r.URL.Query().Get("registration")
	if !registration.IsValid(reg) {
		writeError(w, http.StatusBadRequest, "That doesn't look like a valid registration.")
		return
	}

	details, err := h.client.Lookup(r.Context(), reg)
	if err != nil {
		h.writeLookupFailure(w, reg, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(details)
}

func (h *Handler) writeLookupFailure(w http.ResponseWriter, reg string, err error) {
	kind := KindOf(err)
	h.logger.Info("vehicle lookup failed", "registration", registration.Normalize(reg), "kind", kind, "error", err)

	switch kind {
	case KindNotFound:
		writeError(w, http.StatusNotFound, "We couldn't find a vehicle with that registration.")
	case KindInvalidFormat:
		writeError(w, http.StatusBadRequest, "That registration was rejected by the lookup service.")
	case KindRateLimited:
		writeError(w, http.StatusTooManyRequests, "Too many lookups right now. Please try again in a moment.")
	default:
		writeError(w, http.StatusBadGateway, "The vehicle lookup service is unavailable. Please try again later.")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
