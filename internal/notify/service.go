package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashdownmotors/garage-platform/internal/followup"
	"github.com/ashdownmotors/garage-platform/internal/ledger"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

// Service sends operator notifications for booking events. It satisfies
// ledger.Notifier and followup.Notifier. Delivery is best effort: the
// booking pipeline never waits on or fails because of an email.
type Service struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewService creates a notification service delivering to the given
// operator recipients.
func NewService(email EmailSender, recipients []string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		recipients: recipients,
		logger:     logger,
	}
}

// BookingReceived emails operators a summary of a new booking request.
func (s *Service) BookingReceived(ctx context.Context, sub ledger.BookingSubmission) error {
	if s.email == nil || len(s.recipients) == 0 {
		s.logger.Debug("notify: email not configured, skipping booking notification")
		return nil
	}

	subject := fmt.Sprintf("New booking request - %s", sub.Vehicle.Registration)
	body := fmt.Sprintf(`A new booking request has come in.

Submitted: %s
Registration: %s
Name: %s
Email: %s
Phone: %s
Vehicle: %s
Services: %s
Quoted Price: %s
Notes: %s

Please contact the customer to confirm a slot.`,
		sub.Timestamp.Format(time.RFC1123),
		sub.Vehicle.Registration,
		sub.Customer.Name,
		sub.Customer.Email,
		sub.Customer.Phone,
		vehicleSummary(sub.Vehicle.Make, sub.Vehicle.Model, sub.Vehicle.Year),
		ledger.JoinServices(sub.SelectedServices),
		ledger.FormatPrice(sub.TotalPrice),
		orNone(sub.Notes),
	)

	html := bookingHTML(sub)
	return s.sendToAll(ctx, subject, body, html)
}

// FollowUpDue emails operators a reminder to chase a booking that came
// in a few days ago.
func (s *Service) FollowUpDue(ctx context.Context, ticket followup.Ticket) error {
	if s.email == nil || len(s.recipients) == 0 {
		s.logger.Debug("notify: email not configured, skipping follow-up reminder")
		return nil
	}

	subject := fmt.Sprintf("Follow up due - %s", ticket.Registration)
	body := fmt.Sprintf(`Time to follow up on a booking request from %s.

Registration: %s
Name: %s
Email: %s
Phone: %s
Vehicle: %s
Services: %s
Quoted Price: %s

If the customer has already been booked in, no action is needed.`,
		ticket.SubmittedAt.Format("Monday 2 January"),
		ticket.Registration,
		ticket.CustomerName,
		ticket.Email,
		ticket.Phone,
		vehicleSummary(ticket.VehicleMake, ticket.VehicleModel, ""),
		ticket.Services,
		ledger.FormatPrice(ticket.TotalPrice),
	)

	return s.sendToAll(ctx, subject, body, "")
}

func (s *Service) sendToAll(ctx context.Context, subject, body, html string) error {
	var errs []error
	for _, recipient := range s.recipients {
		msg := EmailMessage{
			To:      recipient,
			Subject: subject,
			Body:    body,
			HTML:    html,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send email", "error", err, "to", recipient)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}

func bookingHTML(sub ledger.BookingSubmission) string {
	row := func(label, value string) string {
		return fmt.Sprintf(`<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`, label, value)
	}

	var b strings.Builder
	b.WriteString(`<div style="font-family: sans-serif; max-width: 600px;">`)
	b.WriteString(`<h2 style="color: #1d4ed8;">New Booking Request</h2>`)
	b.WriteString(`<table style="border-collapse: collapse; margin: 20px 0;">`)
	b.WriteString(row("Submitted", sub.Timestamp.Format(time.RFC1123)))
	b.WriteString(row("Registration", sub.Vehicle.Registration))
	b.WriteString(row("Name", sub.Customer.Name))
	b.WriteString(row("Phone", fmt.Sprintf(`<a href="tel:%s">%s</a>`, sub.Customer.Phone, sub.Customer.Phone)))
	b.WriteString(row("Email", sub.Customer.Email))
	b.WriteString(row("Vehicle", vehicleSummary(sub.Vehicle.Make, sub.Vehicle.Model, sub.Vehicle.Year)))
	b.WriteString(row("Services", ledger.JoinServices(sub.SelectedServices)))
	b.WriteString(row("Quoted Price", ledger.FormatPrice(sub.TotalPrice)))
	if sub.Notes != "" {
		b.WriteString(row("Notes", sub.Notes))
	}
	b.WriteString(`</table>`)
	b.WriteString(`<p>Please contact the customer to confirm a slot.</p>`)
	b.WriteString(`</div>`)
	return b.String()
}

func vehicleSummary(values ...string) string {
	var parts []string
	for _, v := range values {
		if v != "" && v != "Unknown" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " ")
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
