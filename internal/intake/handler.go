package intake

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/ashdownmotors/garage-platform/internal/dvla"
	"github.com/ashdownmotors/garage-platform/internal/ledger"
	"github.com/ashdownmotors/garage-platform/internal/registration"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

//go:embed widget.js
var widgetJS []byte

// Handler exposes the conversational intake flow and the two-step
// estimator over HTTP and WebSocket.
type Handler struct {
	machine *Machine
	store   *SessionStore
	lookup  VehicleLookup
	logger  *logging.Logger
}

// NewHandler creates the intake handler.
func NewHandler(machine *Machine, store *SessionStore, lookup VehicleLookup, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		machine: machine,
		store:   store,
		lookup:  lookup,
		logger:  logger,
	}
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string    `json:"type"` // "message", "session", "history", "error", "pong"
	Text      string    `json:"text,omitempty"`
	Role      string    `json:"role,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and drives the chat in real time.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})

	session, fresh, err := h.loadOrCreate(ctx, sessionID)
	if err != nil {
		h.logger.Error("chat session load failed", "error", err, "session_id", sessionID)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
		return
	}

	if fresh {
		for _, reply := range h.machine.Open(session) {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "message", Role: "assistant", Text: reply})
		}
		h.save(ctx, session)
	} else if len(session.Transcript) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: session.Transcript})
	}

	h.logger.Info("chat connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("chat connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" {
			continue
		}

		for _, reply := range h.machine.Advance(ctx, session, msg.Text) {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "message", Role: "assistant", Text: reply})
		}
		h.save(ctx, session)
	}
}

// HandleMessage is the HTTP fallback for widgets that cannot hold a
// WebSocket open. Replies come back in the response body.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	session, fresh, err := h.loadOrCreate(r.Context(), req.SessionID)
	if err != nil {
		h.logger.Error("chat session load failed", "error", err, "session_id", req.SessionID)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	var replies []string
	if fresh {
		replies = h.machine.Open(session)
		if req.Text != "" {
			replies = append(replies, h.machine.Advance(r.Context(), session, req.Text)...)
		}
	} else {
		replies = h.machine.Advance(r.Context(), session, req.Text)
	}
	h.save(r.Context(), session)

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": session.ID,
		"replies":    replies,
	})
}

// HandleHistory returns the transcript for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	session, err := h.store.Load(r.Context(), sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{"messages": []Message{}})
		return
	}
	if err != nil {
		h.logger.Error("chat history load failed", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": session.Transcript})
}

// HandleWidgetJS serves the embeddable chat widget.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(widgetJS)
}

// HandleEstimatorLookup starts the two-step estimator: look the
// registration up and hold the result for confirmation.
func (h *Handler) HandleEstimatorLookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID    string `json:"session_id"`
		Registration string `json:"registration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !registration.IsValid(req.Registration) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []string{"That doesn't look like a valid registration."},
		})
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	details, err := h.lookup.Lookup(r.Context(), req.Registration)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	state := &EstimateState{
		SessionID: req.SessionID,
		Step:      EstimateConfirmOrRetry,
		Vehicle:   details,
	}
	if err := h.store.SaveEstimate(r.Context(), req.SessionID, state); err != nil {
		h.logger.Error("estimate state save failed", "error", err)
		http.Error(w, "failed to save state", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": req.SessionID,
		"vehicle":    details,
		"display":    registration.Display(details.RegistrationNumber),
	})
}

// HandleEstimatorConfirm accepts the confirm/retry choice. Retry throws
// the previous lookup away entirely.
func (h *Handler) HandleEstimatorConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Action    string `json:"action"` // "confirm" or "retry"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	state, err := h.store.LoadEstimate(r.Context(), req.SessionID)
	if err != nil {
		h.logger.Error("estimate state load failed", "error", err)
		http.Error(w, "failed to load state", http.StatusInternalServerError)
		return
	}
	if state == nil || state.Step != EstimateConfirmOrRetry {
		http.Error(w, "no lookup awaiting confirmation", http.StatusBadRequest)
		return
	}

	switch req.Action {
	case "confirm":
		state.Confirmed = true
		if err := h.store.SaveEstimate(r.Context(), req.SessionID, state); err != nil {
			h.logger.Error("estimate state save failed", "error", err)
			http.Error(w, "failed to save state", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "confirmed", "vehicle": state.Vehicle})
	case "retry":
		// Back to the top of the flow: the previous lookup result is
		// dropped and the session waits for a new registration.
		reset := &EstimateState{SessionID: req.SessionID, Step: EstimateEnterRegistration}
		if err := h.store.SaveEstimate(r.Context(), req.SessionID, reset); err != nil {
			h.logger.Error("estimate state reset failed", "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
	default:
		http.Error(w, `action must be "confirm" or "retry"`, http.StatusBadRequest)
	}
}

// HandleEstimatorQuote prices services against the confirmed vehicle.
func (h *Handler) HandleEstimatorQuote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string   `json:"session_id"`
		Services  []string `json:"services"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Services) == 0 {
		http.Error(w, "at least one service is required", http.StatusBadRequest)
		return
	}

	state, err := h.store.LoadEstimate(r.Context(), req.SessionID)
	if err != nil {
		h.logger.Error("estimate state load failed", "error", err)
		http.Error(w, "failed to load state", http.StatusInternalServerError)
		return
	}
	if state == nil || !state.Confirmed {
		http.Error(w, "confirm a vehicle before requesting a quote", http.StatusBadRequest)
		return
	}

	var engineCC *int
	if state.Vehicle != nil {
		engineCC = state.Vehicle.EngineCapacityCC
	}
	quote, total := QuoteServices(req.Services, engineCC)

	writeJSON(w, http.StatusOK, map[string]any{
		"quote":         quote,
		"total":         total,
		"total_display": ledger.FormatPrice(total),
	})
}

func (h *Handler) loadOrCreate(ctx context.Context, id string) (*Session, bool, error) {
	session, err := h.store.Load(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return NewSession(id), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return session, false, nil
}

func (h *Handler) save(ctx context.Context, session *Session) {
	session.UpdatedAt = time.Now().UTC()
	if err := h.store.Save(ctx, session); err != nil {
		h.logger.Error("chat session save failed", "error", err, "session_id", session.ID)
	}
}

func writeLookupError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	message := "The vehicle lookup service is unavailable. Please try again later."
	switch dvla.KindOf(err) {
	case dvla.KindNotFound:
		status = http.StatusNotFound
		message = "We couldn't find a vehicle with that registration."
	case dvla.KindInvalidFormat:
		status = http.StatusBadRequest
		message = "That registration was rejected by the lookup service."
	case dvla.KindRateLimited:
		status = http.StatusTooManyRequests
		message = "Too many lookups right now. Please try again in a moment."
	}
	writeJSON(w, status, map[string]any{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
