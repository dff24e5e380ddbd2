package ledger

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashdownmotors/garage-platform/internal/registration"
)

// Status is the closed lifecycle enum for a booking row.
type Status string

const (
	StatusNew       Status = "New"
	StatusContacted Status = "Contacted"
	StatusBooked    Status = "Booked"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// AllStatuses lists the closed set in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusNew, StatusContacted, StatusBooked, StatusCompleted, StatusCancelled}
}

// ParseStatus validates a raw status value against the closed set.
func ParseStatus(raw string) (Status, error) {
	candidate := Status(strings.TrimSpace(raw))
	for _, s := range AllStatuses() {
		if candidate == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// StatusColor returns the highlight colour associated with a status. The
// back-office UI uses it to replicate the conditional row shading of the
// original booking sheet.
func StatusColor(s Status) string {
	switch s {
	case StatusNew:
		return "#fff3cd"
	case StatusContacted:
		return "#cfe2ff"
	case StatusBooked:
		return "#d1e7dd"
	case StatusCompleted:
		return "#e2e3e5"
	case StatusCancelled:
		return "#f8d7da"
	default:
		return ""
	}
}

// CustomerContact holds validated contact details.
type CustomerContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Vehicle is the best-known vehicle description at submission time, from the
// lookup or the manual fallback. Year stays a string so "unknown" survives.
type Vehicle struct {
	Registration string `json:"registration"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         string `json:"year"`
}

// BookingSubmission is the aggregate an intake flow produces. Immutable after
// creation; consumers copy, never share. SelectedServices stays an ordered
// slice internally and is only comma-joined at the persistence boundary.
type BookingSubmission struct {
	Timestamp        time.Time       `json:"timestamp"`
	Customer         CustomerContact `json:"customer"`
	Vehicle          Vehicle         `json:"vehicle"`
	SelectedServices []string        `json:"selectedServices"`
	TotalPrice       float64         `json:"totalPrice"`
	Notes            string          `json:"notes"`
}

// Record is a persisted booking row: a submission plus server-assigned
// status and identity.
type Record struct {
	ID        uuid.UUID `json:"id"`
	BookingSubmission
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServiceList accepts either a JSON array of strings or a single
// comma-separated string at the request boundary. Internally it is always a
// slice.
type ServiceList []string

// UnmarshalJSON implements the dual-shape boundary contract.
func (s *ServiceList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*s = trimAll(asList)
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("selectedServices must be an array of strings or a comma-separated string")
	}
	*s = trimAll(strings.Split(asString, ","))
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SubmissionRequest is the single explicit request schema for POST /bookings.
type SubmissionRequest struct {
	Timestamp        string      `json:"timestamp"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Phone            string      `json:"phone"`
	CarRegistration  string      `json:"carRegistration"`
	VehicleMake      string      `json:"vehicleMake"`
	VehicleModel     string      `json:"vehicleModel"`
	VehicleYear      string      `json:"vehicleYear"`
	SelectedServices ServiceList `json:"selectedServices"`
	TotalPrice       float64     `json:"totalPrice"`
	Notes            string      `json:"notes"`
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail checks the basic local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailRe.MatchString(strings.TrimSpace(email))
}

// ValidPhone accepts digits, spaces, +, -, ( and ) with at least seven
// digits overall.
func ValidPhone(phone string) bool {
	digits := 0
	for _, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '+' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7
}

// Validate returns every problem with the request, not just the first, so
// the caller can respond with a full errors array.
func (r *SubmissionRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if !ValidEmail(r.Email) {
		errs = append(errs, "that doesn't look like a valid email")
	}
	if !ValidPhone(r.Phone) {
		errs = append(errs, "that doesn't look like a valid phone number")
	}
	if !registration.IsValid(r.CarRegistration) {
		errs = append(errs, "that doesn't look like a valid vehicle registration")
	}
	if r.TotalPrice < 0 {
		errs = append(errs, "totalPrice must not be negative")
	}
	return errs
}

// ToSubmission builds the immutable aggregate, filling defaults: the
// timestamp defaults to now and absent optional fields stay empty rather
// than failing.
func (r *SubmissionRequest) ToSubmission(now time.Time) BookingSubmission {
	ts := now
	if r.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, r.Timestamp); err == nil {
			ts = parsed
		}
	}
	return BookingSubmission{
		Timestamp: ts.UTC(),
		Customer: CustomerContact{
			Name:  strings.TrimSpace(r.Name),
			Email: strings.TrimSpace(r.Email),
			Phone: strings.TrimSpace(r.Phone),
		},
		Vehicle: Vehicle{
			Registration: registration.Normalize(r.CarRegistration),
			Make:         strings.TrimSpace(r.VehicleMake),
			Model:        strings.TrimSpace(r.VehicleModel),
			Year:         strings.TrimSpace(r.VehicleYear),
		},
		SelectedServices: append([]string(nil), r.SelectedServices...),
		TotalPrice:       r.TotalPrice,
		Notes:            strings.TrimSpace(r.Notes),
	}
}

// JoinServices renders the ordered service list for persistence and export.
func JoinServices(services []string) string {
	return strings.Join(services, ", ")
}

// FormatPrice applies the currency symbol. Presentation only; internal state
// keeps the bare number.
func FormatPrice(price float64) string {
	return fmt.Sprintf("£%.2f", price)
}
