// Package intake implements the conversational booking flow: a
// step-indexed state machine that collects contact and vehicle details,
// enriches the registration via the vehicle lookup, and hands the
// finished submission to the booking pipeline.
package intake

import (
	"strings"
	"time"
)

// Step identifies where a session is in the intake flow. One variant per
// state keeps illegal states unrepresentable; there is no numeric step
// counter to drift out of range.
type Step string

const (
	StepStart               Step = "start"
	StepCollectName         Step = "collect_name"
	StepCollectEmail        Step = "collect_email"
	StepCollectPhone        Step = "collect_phone"
	StepCollectRegistration Step = "collect_registration"
	StepLookupInFlight      Step = "lookup_in_flight"
	StepConfirmVehicle      Step = "confirm_vehicle"
	StepCollectMakeManual   Step = "collect_make_manual"
	StepCollectYearManual   Step = "collect_year_manual"
	StepCollectEngineManual Step = "collect_engine_manual"
	StepCollectServices     Step = "collect_services"
	StepCollectNotes        Step = "collect_notes"
	StepAwaitingRestart     Step = "awaiting_restart"
	StepClosed              Step = "closed"
)

// Message is one line of the session transcript.
type Message struct {
	Role      string    `json:"role"` // "assistant" or "user"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// VehicleInfo is the best-known vehicle description for the session,
// filled from the lookup or from manual fallback entry.
type VehicleInfo struct {
	Make     string `json:"make,omitempty"`
	Model    string `json:"model,omitempty"`
	Year     string `json:"year,omitempty"`
	EngineCC string `json:"engine_cc,omitempty"`
}

// Session is the full state of one intake conversation. It is persisted
// between messages; the machine mutates it in place.
type Session struct {
	ID            string      `json:"id"`
	Step          Step        `json:"step"`
	Name          string      `json:"name,omitempty"`
	Email         string      `json:"email,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	Registration  string      `json:"registration,omitempty"`
	Vehicle       VehicleInfo `json:"vehicle"`
	Services      []string    `json:"services,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	NotesCaptured bool        `json:"notes_captured,omitempty"`
	Transcript    []Message   `json:"transcript,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewSession creates a fresh session at the start of the flow.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Step:      StepStart,
		UpdatedAt: time.Now().UTC(),
	}
}

// reset clears everything collected so far and returns to the top of the
// flow. The transcript is kept.
func (s *Session) reset() {
	s.Step = StepStart
	s.Name = ""
	s.Email = ""
	s.Phone = ""
	s.Registration = ""
	s.Vehicle = VehicleInfo{}
	s.Services = nil
	s.Notes = ""
	s.NotesCaptured = false
}

func (s *Session) record(role, text string) {
	s.Transcript = append(s.Transcript, Message{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

func isYes(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "yes", "y", "yeah", "yep", "sure", "ok":
		return true
	}
	return false
}

func isNo(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "no", "n", "nope":
		return true
	}
	return false
}
