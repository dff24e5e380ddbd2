package intake

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashdownmotors/garage-platform/internal/dvla"
	"github.com/ashdownmotors/garage-platform/internal/ledger"
)

type fakeLookup struct {
	details *dvla.VehicleDetails
	err     error
	calls   int
}

func (f *fakeLookup) Lookup(_ context.Context, _ string) (*dvla.VehicleDetails, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.details, nil
}

type fakeSubmitter struct {
	submissions []ledger.BookingSubmission
	err         error
}

func (f *fakeSubmitter) Submit(_ context.Context, sub ledger.BookingSubmission) (*ledger.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submissions = append(f.submissions, sub)
	return &ledger.Record{BookingSubmission: sub, Status: ledger.StatusNew}, nil
}

func intPtr(v int) *int { return &v }

func fordFocus() *dvla.VehicleDetails {
	return &dvla.VehicleDetails{
		RegistrationNumber: "AB12CDE",
		Make:               "Ford",
		Model:              "Unknown",
		YearOfManufacture:  intPtr(2019),
		EngineCapacityCC:   intPtr(1600),
	}
}

// drive feeds inputs through the machine in order and returns the final replies.
func drive(t *testing.T, m *Machine, s *Session, inputs ...string) []string {
	t.Helper()
	var replies []string
	for _, input := range inputs {
		replies = m.Advance(context.Background(), s, input)
	}
	return replies
}

func contactInputs() []string {
	return []string{"Jo Bloggs", "jo@example.com", "07700 900123"}
}

func TestFlowReachesConfirmVehicleWithLookupDetails(t *testing.T) {
	lookup := &fakeLookup{details: fordFocus()}
	m := NewMachine(lookup, &fakeSubmitter{}, nil)
	s := NewSession("s1")
	m.Open(s)

	replies := drive(t, m, s, append(contactInputs(), "ab12 cde")...)

	require.Equal(t, StepConfirmVehicle, s.Step)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Ford")
	assert.Contains(t, replies[0], "2019")
	assert.Contains(t, replies[0], "1600cc")
	assert.Equal(t, "AB12CDE", s.Registration, "registration is normalized before lookup")
	assert.Equal(t, 1, lookup.calls)
}

func TestConfirmedVehicleSkipsManualEntry(t *testing.T) {
	m := NewMachine(&fakeLookup{details: fordFocus()}, &fakeSubmitter{}, nil)
	s := NewSession("s1")
	m.Open(s)
	drive(t, m, s, append(contactInputs(), "AB12CDE")...)

	replies := drive(t, m, s, "yes")
	require.Equal(t, StepCollectServices, s.Step, "confirmation goes straight to service interest")
	assert.Contains(t, strings.Join(replies, " "), "services")
	assert.Equal(t, "Ford", s.Vehicle.Make)
	assert.Equal(t, "2019", s.Vehicle.Year)
}

func TestLookupNotFoundDegradesToServiceInterest(t *testing.T) {
	lookup := &fakeLookup{err: &dvla.LookupError{Kind: dvla.KindNotFound, Message: "no vehicle"}}
	m := NewMachine(lookup, &fakeSubmitter{}, nil)
	s := NewSession("s1")
	m.Open(s)

	replies := drive(t, m, s, append(contactInputs(), "ZZ99ZZZ")...)

	assert.Equal(t, StepCollectServices, s.Step, "lookup failure must not block the booking")
	assert.Contains(t, strings.Join(replies, " "), "no worries")
}

func TestRejectedVehicleWalksManualFallbackChain(t *testing.T) {
	m := NewMachine(&fakeLookup{details: fordFocus()}, &fakeSubmitter{}, nil)
	s := NewSession("s1")
	m.Open(s)
	drive(t, m, s, append(contactInputs(), "AB12CDE")...)

	drive(t, m, s, "no")
	require.Equal(t, StepCollectMakeManual, s.Step)
	assert.Empty(t, s.Vehicle.Make, "rejected lookup details are discarded")

	drive(t, m, s, "Vauxhall Corsa", "2016", "unknown")
	assert.Equal(t, StepCollectServices, s.Step)
	assert.Equal(t, "Vauxhall Corsa", s.Vehicle.Make)
	assert.Equal(t, "2016", s.Vehicle.Year)
	assert.Empty(t, s.Vehicle.EngineCC)
}

func TestInvalidInputSelfLoops(t *testing.T) {
	m := NewMachine(&fakeLookup{details: fordFocus()}, &fakeSubmitter{}, nil)
	s := NewSession("s1")
	m.Open(s)

	drive(t, m, s, "Jo Bloggs")
	require.Equal(t, StepCollectEmail, s.Step)

	replies := drive(t, m, s, "not-an-email")
	assert.Equal(t, StepCollectEmail, s.Step, "bad email re-prompts instead of advancing")
	assert.Contains(t, replies[0], "valid email")

	drive(t, m, s, "jo@example.com")
	replies = drive(t, m, s, "abc")
	assert.Equal(t, StepCollectPhone, s.Step)
	assert.Contains(t, replies[0], "valid phone")

	drive(t, m, s, "07700900123")
	replies = drive(t, m, s, "!")
	assert.Equal(t, StepCollectRegistration, s.Step)
	assert.Contains(t, replies[0], "valid registration")
}

func TestCompletedFlowSubmitsBooking(t *testing.T) {
	submitter := &fakeSubmitter{}
	m := NewMachine(&fakeLookup{details: fordFocus()}, submitter, nil)
	s := NewSession("s1")
	m.Open(s)

	drive(t, m, s, append(contactInputs(), "AB12CDE", "yes", "MOT, Oil Change", "squeaky brakes")...)

	require.Equal(t, StepAwaitingRestart, s.Step)
	require.Len(t, submitter.submissions, 1)

	sub := submitter.submissions[0]
	assert.Equal(t, "Jo Bloggs", sub.Customer.Name)
	assert.Equal(t, "AB12CDE", sub.Vehicle.Registration)
	assert.Equal(t, []string{"MOT", "Oil Change"}, sub.SelectedServices)
	assert.Equal(t, "squeaky brakes", sub.Notes)
}

func TestSubmitFailureStaysOnNotesForRetry(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("db down")}
	m := NewMachine(&fakeLookup{details: fordFocus()}, submitter, nil)
	s := NewSession("s1")
	m.Open(s)

	replies := drive(t, m, s, append(contactInputs(), "AB12CDE", "yes", "MOT", "no")...)

	assert.Equal(t, StepCollectNotes, s.Step, "user can retry the submission")
	assert.Contains(t, replies[0], "wasn't recorded")
	assert.NotContains(t, replies[0], "db down", "internal detail must not leak")
}

func TestRetryAfterSubmitFailureKeepsNotes(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("db down")}
	m := NewMachine(&fakeLookup{details: fordFocus()}, submitter, nil)
	s := NewSession("s1")
	m.Open(s)

	drive(t, m, s, append(contactInputs(), "AB12CDE", "yes", "MOT", "squeaky brakes")...)
	require.Equal(t, StepCollectNotes, s.Step)

	// Storage recovers; the user's "retry" is an instruction, not new notes.
	submitter.err = nil
	drive(t, m, s, "retry")

	require.Len(t, submitter.submissions, 1)
	assert.Equal(t, "squeaky brakes", submitter.submissions[0].Notes)
	assert.Equal(t, StepAwaitingRestart, s.Step)
}

func TestRetryAfterSubmitFailureKeepsEmptyNotes(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("db down")}
	m := NewMachine(&fakeLookup{details: fordFocus()}, submitter, nil)
	s := NewSession("s1")
	m.Open(s)

	drive(t, m, s, append(contactInputs(), "AB12CDE", "yes", "MOT", "no")...)

	submitter.err = nil
	drive(t, m, s, "retry")

	require.Len(t, submitter.submissions, 1)
	assert.Empty(t, submitter.submissions[0].Notes)
}

func TestRestartChoiceResetsOrCloses(t *testing.T) {
	m := NewMachine(&fakeLookup{details: fordFocus()}, &fakeSubmitter{}, nil)
	s := NewSession("s1")
	m.Open(s)
	drive(t, m, s, append(contactInputs(), "AB12CDE", "yes", "MOT", "no")...)
	require.Equal(t, StepAwaitingRestart, s.Step)

	drive(t, m, s, "yes")
	assert.Equal(t, StepCollectName, s.Step)
	assert.Empty(t, s.Name, "restart clears all collected fields")
	assert.Empty(t, s.Registration)

	drive(t, m, s, append(contactInputs(), "AB12CDE", "yes", "MOT", "no")...)
	drive(t, m, s, "no")
	assert.Equal(t, StepClosed, s.Step)
}
