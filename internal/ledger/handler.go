package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ashdownmotors/garage-platform/internal/observability/metrics"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

// Handler exposes the booking submission endpoint and the back-office API.
type Handler struct {
	service *Service
	repo    *Repository
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

// NewHandler creates the bookings handler.
func NewHandler(service *Service, repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, repo: repo, logger: logger}
}

// WithMetrics enables submission counters on the handler.
func (h *Handler) WithMetrics(m *metrics.BookingMetrics) *Handler {
	h.metrics = m
	return h
}

type errorsResponse struct {
	Errors []string `json:"errors"`
}

// CreateBooking handles POST /bookings.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode submission", "error", err)
		writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: []string{"invalid request body"}})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: errs})
		return
	}

	record, err := h.service.Submit(r.Context(), req.ToSubmission(time.Now()))
	if err != nil {
		h.metrics.ObserveSubmission("failed", "form")
		h.logger.Error("failed to record booking", "error", err)
		// Generic message only: the user must know the booking was not
		// recorded, without internal detail leaking.
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Sorry, we couldn't record your booking. Please try again.",
		})
		return
	}

	h.metrics.ObserveSubmission("recorded", "form")
	writeJSON(w, http.StatusCreated, record)
}

// ListBookingsResponse is the page envelope for the back-office list screen.
type ListBookingsResponse struct {
	Bookings     []Record          `json:"bookings"`
	TotalCount   int               `json:"total_count"`
	Page         int               `json:"page"`
	PageSize     int               `json:"page_size"`
	StatusColors map[Status]string `json:"status_colors"`
}

// ListBookings handles GET /admin/bookings.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	page := 1
	pageSize := 50
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("pageSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			pageSize = n
		}
	}

	filter := Filter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}

	records, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status filter"})
			return
		}
		h.logger.Error("failed to list bookings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list bookings"})
		return
	}
	if records == nil {
		records = []Record{}
	}

	colors := make(map[Status]string, len(AllStatuses()))
	for _, s := range AllStatuses() {
		colors[s] = StatusColor(s)
	}

	writeJSON(w, http.StatusOK, ListBookingsResponse{
		Bookings:     records,
		TotalCount:   total,
		Page:         page,
		PageSize:     pageSize,
		StatusColors: colors,
	})
}

// UpdateStatus handles PATCH /admin/bookings/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booking id"})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.repo.UpdateStatus(r.Context(), id, req.Status); err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status value"})
		case errors.Is(err, ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "booking not found"})
		default:
			h.logger.Error("failed to update status", "error", err, "id", id)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update status"})
		}
		return
	}

	h.logger.Info("booking status updated", "id", id, "status", req.Status)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBooking handles DELETE /admin/bookings/{id}. Deletion is irreversible
// and separate from the status lifecycle, so it demands ?confirm=true.
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booking id"})
		return
	}

	if r.URL.Query().Get("confirm") != "true" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "deletion requires confirm=true"})
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "booking not found"})
			return
		}
		h.logger.Error("failed to delete booking", "error", err, "id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete booking"})
		return
	}

	h.logger.Info("booking deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
