package ledger

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

var ledgerTracer = otel.Tracer("garage.internal.ledger")

// FollowUpScheduler books a deferred reminder for a submission.
type FollowUpScheduler interface {
	Schedule(ctx context.Context, sub BookingSubmission) error
}

// Notifier announces a recorded booking to the operators. Best-effort.
type Notifier interface {
	BookingReceived(ctx context.Context, sub BookingSubmission) error
}

// Service runs the submission pipeline: ledger write first (the only hard
// failure), then follow-up scheduling, then notification. The latter two are
// logged on failure but never undo the write — losing a recorded booking is
// worse than missing a reminder.
type Service struct {
	repo      *Repository
	scheduler FollowUpScheduler
	notifier  Notifier
	logger    *logging.Logger
}

// NewService constructs the submission service.
func NewService(repo *Repository, scheduler FollowUpScheduler, notifier Notifier, logger *logging.Logger) *Service {
	if repo == nil {
		panic("ledger: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		scheduler: scheduler,
		notifier:  notifier,
		logger:    logger,
	}
}

// Submit records a booking and kicks off the follow-up and notification.
func (s *Service) Submit(ctx context.Context, sub BookingSubmission) (*Record, error) {
	ctx, span := ledgerTracer.Start(ctx, "ledger.submit")
	defer span.End()
	span.SetAttributes(attribute.String("garage.registration", sub.Vehicle.Registration))

	record, err := s.repo.Append(ctx, sub)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("booking recorded",
		"id", record.ID,
		"registration", sub.Vehicle.Registration,
		"services", JoinServices(sub.SelectedServices),
	)

	if s.scheduler != nil {
		if err := s.scheduler.Schedule(ctx, sub); err != nil {
			s.logger.Error("failed to schedule follow-up", "error", err, "booking_id", record.ID)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.BookingReceived(ctx, sub); err != nil {
			s.logger.Error("failed to send booking notification", "error", err, "booking_id", record.ID)
		}
	}

	return record, nil
}
