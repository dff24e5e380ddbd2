package intake

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ashdownmotors/garage-platform/internal/dvla"
	"github.com/ashdownmotors/garage-platform/internal/ledger"
	"github.com/ashdownmotors/garage-platform/internal/observability/metrics"
	"github.com/ashdownmotors/garage-platform/internal/registration"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

// VehicleLookup resolves a registration to vehicle details.
type VehicleLookup interface {
	Lookup(ctx context.Context, reg string) (*dvla.VehicleDetails, error)
}

// Submitter records a finished booking. Satisfied by ledger.Service.
type Submitter interface {
	Submit(ctx context.Context, sub ledger.BookingSubmission) (*ledger.Record, error)
}

// Machine drives a Session through the intake flow. It is stateless
// itself; all per-conversation state lives on the Session.
type Machine struct {
	lookup    VehicleLookup
	submitter Submitter
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
}

// NewMachine creates an intake state machine.
func NewMachine(lookup VehicleLookup, submitter Submitter, logger *logging.Logger) *Machine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Machine{
		lookup:    lookup,
		submitter: submitter,
		logger:    logger,
	}
}

// WithMetrics enables submission counters on the machine.
func (m *Machine) WithMetrics(bm *metrics.BookingMetrics) *Machine {
	m.metrics = bm
	return m
}

// Open starts a fresh conversation and returns the greeting.
func (m *Machine) Open(s *Session) []string {
	s.Step = StepCollectName
	replies := []string{
		"Hi! I can help you book your car in with us.",
		"What's your name?",
	}
	for _, r := range replies {
		s.record("assistant", r)
	}
	s.UpdatedAt = time.Now().UTC()
	return replies
}

// Advance feeds one user input into the session and returns the
// assistant's replies. Invalid input never aborts the flow; the current
// prompt just repeats with an explanation.
func (m *Machine) Advance(ctx context.Context, s *Session, input string) []string {
	input = strings.TrimSpace(input)
	s.record("user", input)

	var replies []string
	switch s.Step {
	case StepStart:
		replies = m.Open(s)
		s.UpdatedAt = time.Now().UTC()
		return replies
	case StepCollectName:
		replies = m.collectName(s, input)
	case StepCollectEmail:
		replies = m.collectEmail(s, input)
	case StepCollectPhone:
		replies = m.collectPhone(s, input)
	case StepCollectRegistration:
		replies = m.collectRegistration(ctx, s, input)
	case StepConfirmVehicle:
		replies = m.confirmVehicle(s, input)
	case StepCollectMakeManual:
		replies = m.collectMakeManual(s, input)
	case StepCollectYearManual:
		replies = m.collectYearManual(s, input)
	case StepCollectEngineManual:
		replies = m.collectEngineManual(s, input)
	case StepCollectServices:
		replies = m.collectServices(s, input)
	case StepCollectNotes:
		replies = m.collectNotes(ctx, s, input)
	case StepAwaitingRestart:
		replies = m.awaitingRestart(s, input)
	case StepClosed:
		replies = []string{"This chat has finished. Refresh the page to start a new one."}
	default:
		// Unknown persisted step, likely from an older session shape.
		s.reset()
		replies = m.Open(s)
	}

	for _, r := range replies {
		s.record("assistant", r)
	}
	s.UpdatedAt = time.Now().UTC()
	return replies
}

func (m *Machine) collectName(s *Session, input string) []string {
	if input == "" {
		return []string{"Sorry, I didn't catch that. What's your name?"}
	}
	s.Name = input
	s.Step = StepCollectEmail
	return []string{fmt.Sprintf("Thanks %s! What's the best email address for you?", s.Name)}
}

func (m *Machine) collectEmail(s *Session, input string) []string {
	if !ledger.ValidEmail(input) {
		return []string{"That doesn't look like a valid email address. Could you try again?"}
	}
	s.Email = input
	s.Step = StepCollectPhone
	return []string{"Got it. And a phone number we can reach you on?"}
}

func (m *Machine) collectPhone(s *Session, input string) []string {
	if !ledger.ValidPhone(input) {
		return []string{"That doesn't look like a valid phone number. Could you try again?"}
	}
	s.Phone = input
	s.Step = StepCollectRegistration
	return []string{"Perfect. What's your vehicle registration? (e.g. AB12 CDE)"}
}

func (m *Machine) collectRegistration(ctx context.Context, s *Session, input string) []string {
	if !registration.IsValid(input) {
		return []string{"That doesn't look like a valid registration. Could you try again?"}
	}
	s.Registration = registration.Normalize(input)

	// The lookup is the only suspension point in the flow. It runs
	// inline here, so no second input can interleave with it and the
	// session always lands in a forward-progressing state.
	s.Step = StepLookupInFlight
	details, err := m.lookupVehicle(ctx, s.Registration)
	if err != nil {
		// Degrade rather than block the user on the upstream service.
		s.Step = StepCollectServices
		replies := []string{"I couldn't look that vehicle up, no worries, let's continue."}
		if dvla.KindOf(err) == dvla.KindRateLimited {
			replies = []string{"The vehicle lookup service is busy right now, so I'll skip that step."}
		}
		return append(replies, "Which services are you interested in? (e.g. MOT, Full Service)")
	}

	s.Vehicle = vehicleInfoFromLookup(details)
	s.Step = StepConfirmVehicle
	return []string{fmt.Sprintf("I found a %s. Is that your vehicle? (yes/no)", describeVehicle(s.Vehicle))}
}

func (m *Machine) lookupVehicle(ctx context.Context, reg string) (*dvla.VehicleDetails, error) {
	if m.lookup == nil {
		return nil, &dvla.LookupError{Kind: dvla.KindUpstream, Message: "lookup not configured"}
	}
	details, err := m.lookup.Lookup(ctx, reg)
	if err != nil {
		m.logger.Info("intake vehicle lookup failed", "registration", reg, "kind", dvla.KindOf(err), "error", err)
		return nil, err
	}
	return details, nil
}

func (m *Machine) confirmVehicle(s *Session, input string) []string {
	switch {
	case isYes(input):
		s.Step = StepCollectServices
		return []string{"Great. Which services are you interested in? (e.g. MOT, Full Service)"}
	case isNo(input):
		s.Vehicle = VehicleInfo{}
		s.Step = StepCollectMakeManual
		return []string{"No problem, let's take the details manually. What make and model is the vehicle?"}
	default:
		return []string{"Just a yes or no, please. Is that your vehicle?"}
	}
}

func (m *Machine) collectMakeManual(s *Session, input string) []string {
	if input == "" {
		return []string{"Sorry, I didn't catch that. What make and model is the vehicle?"}
	}
	s.Vehicle.Make = input
	s.Step = StepCollectYearManual
	return []string{"And what year was it registered?"}
}

func (m *Machine) collectYearManual(s *Session, input string) []string {
	if input == "" {
		return []string{"Sorry, I didn't catch that. What year was the vehicle registered?"}
	}
	s.Vehicle.Year = input
	s.Step = StepCollectEngineManual
	return []string{`What's the engine size, roughly? (e.g. 1600cc, or "unknown")`}
}

func (m *Machine) collectEngineManual(s *Session, input string) []string {
	if input == "" {
		return []string{`Sorry, I didn't catch that. Engine size, or "unknown"?`}
	}
	if !strings.EqualFold(input, "unknown") {
		s.Vehicle.EngineCC = input
	}
	s.Step = StepCollectServices
	return []string{"Thanks. Which services are you interested in? (e.g. MOT, Full Service)"}
}

func (m *Machine) collectServices(s *Session, input string) []string {
	services := splitServices(input)
	if len(services) == 0 {
		return []string{"Sorry, I didn't catch that. Which services are you interested in?"}
	}
	s.Services = services
	s.Step = StepCollectNotes
	return []string{`Anything else we should know? (or "no")`}
}

func (m *Machine) collectNotes(ctx context.Context, s *Session, input string) []string {
	// Only the first pass through this step is the notes answer. After a
	// failed submission the session stays here and the user's "retry"
	// must not replace what they already told us.
	if !s.NotesCaptured {
		if !isNo(input) && !strings.EqualFold(input, "none") {
			s.Notes = input
		}
		s.NotesCaptured = true
	}

	if _, err := m.submitter.Submit(ctx, s.buildSubmission()); err != nil {
		m.metrics.ObserveSubmission("failed", "chat")
		m.logger.Error("intake submission failed", "session_id", s.ID, "error", err)
		// Persistence failure is the one hard failure: the user must
		// know the booking was not recorded. Stay here so they can retry.
		return []string{`Sorry, something went wrong and your booking wasn't recorded. Please say "retry" to try again.`}
	}

	m.metrics.ObserveSubmission("recorded", "chat")
	s.Step = StepAwaitingRestart
	return []string{
		fmt.Sprintf("All done, %s! We've got your request for %s and we'll be in touch shortly.",
			s.Name, registration.Display(s.Registration)),
		"Would you like to make another booking? (yes/no)",
	}
}

func (m *Machine) awaitingRestart(s *Session, input string) []string {
	switch {
	case isYes(input):
		s.reset()
		return m.Open(s)
	case isNo(input):
		s.Step = StepClosed
		return []string{"Thanks for getting in touch. See you soon!"}
	default:
		return []string{"Would you like to make another booking? (yes/no)"}
	}
}

// buildSubmission assembles the aggregate handed to the booking pipeline.
func (s *Session) buildSubmission() ledger.BookingSubmission {
	return ledger.BookingSubmission{
		Timestamp: time.Now().UTC(),
		Customer: ledger.CustomerContact{
			Name:  s.Name,
			Email: s.Email,
			Phone: s.Phone,
		},
		Vehicle: ledger.Vehicle{
			Registration: s.Registration,
			Make:         s.Vehicle.Make,
			Model:        s.Vehicle.Model,
			Year:         s.Vehicle.Year,
		},
		SelectedServices: s.Services,
		Notes:            s.Notes,
	}
}

func vehicleInfoFromLookup(details *dvla.VehicleDetails) VehicleInfo {
	info := VehicleInfo{
		Make:  details.Make,
		Model: details.Model,
	}
	if details.YearOfManufacture != nil {
		info.Year = strconv.Itoa(*details.YearOfManufacture)
	}
	if details.EngineCapacityCC != nil {
		info.EngineCC = strconv.Itoa(*details.EngineCapacityCC)
	}
	return info
}

// describeVehicle renders the confirmation line, e.g.
// "FORD Focus, registered 2019, 1600cc engine".
func describeVehicle(v VehicleInfo) string {
	parts := []string{v.Make}
	if v.Model != "" && v.Model != "Unknown" {
		parts = []string{v.Make + " " + v.Model}
	}
	if v.Year != "" {
		parts = append(parts, "registered "+v.Year)
	}
	if v.EngineCC != "" {
		parts = append(parts, v.EngineCC+"cc engine")
	}
	return strings.Join(parts, ", ")
}

func splitServices(input string) []string {
	var services []string
	for _, part := range strings.Split(input, ",") {
		if part = strings.TrimSpace(part); part != "" {
			services = append(services, part)
		}
	}
	return services
}
