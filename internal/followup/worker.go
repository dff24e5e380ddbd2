package followup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ashdownmotors/garage-platform/internal/observability/metrics"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

// Notifier delivers the follow-up reminder to the garage operator.
type Notifier interface {
	FollowUpDue(ctx context.Context, ticket Ticket) error
}

// Worker fires due follow-up tickets. Run it on a schedule; each pass
// picks up every ticket whose fire time has passed.
type Worker struct {
	store    *Store
	notifier Notifier
	logger   *logging.Logger
	metrics  *metrics.BookingMetrics
}

// NewWorker creates a follow-up worker.
func NewWorker(store *Store, notifier Notifier, logger *logging.Logger) *Worker {
	if store == nil {
		panic("followup: store required")
	}
	if notifier == nil {
		panic("followup: notifier required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{store: store, notifier: notifier, logger: logger}
}

// WithMetrics enables the fired-reminder counter on the worker.
func (w *Worker) WithMetrics(m *metrics.BookingMetrics) *Worker {
	w.metrics = m
	return w
}

// ProcessDue fires every ticket due as of now and returns the number fired.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	tickets, err := w.store.ListDue(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("followup: process due: %w", err)
	}

	fired := 0
	for _, ticket := range tickets {
		if err := w.Fire(ctx, ticket.ID); err != nil {
			w.logger.Error("follow-up fire failed", "ticket_id", ticket.ID, "error", err)
			continue
		}
		fired++
	}
	return fired, nil
}

// Fire sends the reminder for one ticket and consumes it. Firing a ticket
// that no longer exists is a no-op: the ticket was already handled.
// Reminders are at-most-once; a send failure is logged and the ticket is
// consumed anyway rather than left to fire again on the next pass.
func (w *Worker) Fire(ctx context.Context, id uuid.UUID) error {
	ticket, err := w.store.Get(ctx, id)
	if errors.Is(err, ErrTicketNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := w.notifier.FollowUpDue(ctx, *ticket); err != nil {
		w.logger.Error("follow-up reminder send failed",
			"ticket_id", ticket.ID,
			"registration", ticket.Registration,
			"error", err,
		)
	} else {
		w.metrics.ObserveFollowUpFired()
		w.logger.Info("follow-up reminder sent",
			"ticket_id", ticket.ID,
			"registration", ticket.Registration,
		)
	}

	if err := w.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrTicketNotFound) {
		return err
	}
	return nil
}
