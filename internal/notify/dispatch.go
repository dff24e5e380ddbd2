package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashdownmotors/garage-platform/internal/followup"
	"github.com/ashdownmotors/garage-platform/internal/ledger"
	"github.com/ashdownmotors/garage-platform/internal/queue"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

const (
	jobBookingReceived = "booking_received"
	jobFollowUpDue     = "follow_up_due"
)

// job is the queue envelope for a pending notification.
type job struct {
	Kind    string                    `json:"kind"`
	Booking *ledger.BookingSubmission `json:"booking,omitempty"`
	Ticket  *followup.Ticket          `json:"ticket,omitempty"`
}

// Publisher enqueues notification jobs instead of sending inline, so the
// booking request returns without waiting on an email provider. It
// satisfies ledger.Notifier and followup.Notifier.
type Publisher struct {
	q      queue.Queue
	logger *logging.Logger
}

// NewPublisher creates a queue-backed notification publisher.
func NewPublisher(q queue.Queue, logger *logging.Logger) *Publisher {
	if q == nil {
		panic("notify: queue required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{q: q, logger: logger}
}

// BookingReceived enqueues a new-booking notification.
func (p *Publisher) BookingReceived(ctx context.Context, sub ledger.BookingSubmission) error {
	return p.publish(ctx, job{Kind: jobBookingReceived, Booking: &sub})
}

// FollowUpDue enqueues a follow-up reminder notification.
func (p *Publisher) FollowUpDue(ctx context.Context, ticket followup.Ticket) error {
	return p.publish(ctx, job{Kind: jobFollowUpDue, Ticket: &ticket})
}

func (p *Publisher) publish(ctx context.Context, j job) error {
	body, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("notify: marshal job: %w", err)
	}
	if err := p.q.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("notify: enqueue %s: %w", j.Kind, err)
	}
	p.logger.Debug("notification enqueued", "kind", j.Kind)
	return nil
}

// Dispatcher drains the notification queue and delivers each job through
// the Service. Malformed or failed jobs are logged and dropped rather
// than redelivered; notifications are best effort.
type Dispatcher struct {
	q       queue.Queue
	service *Service
	logger  *logging.Logger
}

// NewDispatcher creates a queue consumer for notification jobs.
func NewDispatcher(q queue.Queue, service *Service, logger *logging.Logger) *Dispatcher {
	if q == nil {
		panic("notify: queue required")
	}
	if service == nil {
		panic("notify: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{q: q, service: service, logger: logger}
}

// Run consumes jobs until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		messages, err := d.q.Receive(ctx, 10, 10)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error("notification receive failed", "error", err)
			continue
		}

		for _, msg := range messages {
			d.handle(ctx, msg.Body)
			if err := d.q.Delete(ctx, msg.ReceiptHandle); err != nil {
				d.logger.Error("notification delete failed", "error", err, "message_id", msg.ID)
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, body string) {
	var j job
	if err := json.Unmarshal([]byte(body), &j); err != nil {
		d.logger.Error("notification job malformed", "error", err)
		return
	}

	var err error
	switch {
	case j.Kind == jobBookingReceived && j.Booking != nil:
		err = d.service.BookingReceived(ctx, *j.Booking)
	case j.Kind == jobFollowUpDue && j.Ticket != nil:
		err = d.service.FollowUpDue(ctx, *j.Ticket)
	default:
		d.logger.Error("notification job unrecognised", "kind", j.Kind)
		return
	}
	if err != nil {
		d.logger.Error("notification delivery failed", "kind", j.Kind, "error", err)
	}
}
