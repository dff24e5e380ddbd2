package followup

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/ashdownmotors/garage-platform/internal/ledger"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

// Scheduler creates follow-up tickets for new bookings. It satisfies
// ledger.FollowUpScheduler.
type Scheduler struct {
	store     *Store
	delayDays int
	logger    *logging.Logger
}

// NewScheduler creates a scheduler that fires delayDays after submission.
func NewScheduler(store *Store, delayDays int, logger *logging.Logger) *Scheduler {
	if store == nil {
		panic("followup: store required")
	}
	if delayDays <= 0 {
		delayDays = 2
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{store: store, delayDays: delayDays, logger: logger}
}

// Schedule persists a ticket due delayDays after the booking timestamp.
// The ticket snapshots everything the reminder needs so it survives
// later edits or deletion of the booking itself.
func (s *Scheduler) Schedule(ctx context.Context, sub ledger.BookingSubmission) error {
	ctx, span := otel.Tracer("garage.internal.followup").Start(ctx, "Scheduler.Schedule")
	defer span.End()

	ticket := &Ticket{
		CustomerName: sub.Customer.Name,
		Email:        sub.Customer.Email,
		Phone:        sub.Customer.Phone,
		Registration: sub.Vehicle.Registration,
		VehicleMake:  sub.Vehicle.Make,
		VehicleModel: sub.Vehicle.Model,
		Services:     ledger.JoinServices(sub.SelectedServices),
		TotalPrice:   sub.TotalPrice,
		SubmittedAt:  sub.Timestamp,
		FireAt:       sub.Timestamp.Add(time.Duration(s.delayDays) * 24 * time.Hour),
	}

	if err := s.store.Create(ctx, ticket); err != nil {
		return fmt.Errorf("followup: schedule: %w", err)
	}

	s.logger.Info("follow-up scheduled",
		"ticket_id", ticket.ID,
		"registration", ticket.Registration,
		"fire_at", ticket.FireAt,
	)
	return nil
}
