package followup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrTicketNotFound means the ticket was already consumed or never existed.
// The firing handler treats it as a silent no-op.
var ErrTicketNotFound = errors.New("followup: ticket not found")

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists follow-up tickets in a due-at table polled by the worker.
type Store struct {
	db DB
}

// NewStore creates a follow-up ticket store.
func NewStore(db DB) *Store {
	if db == nil {
		panic("followup: db required")
	}
	return &Store{db: db}
}

const ticketColumns = `id, customer_name, email, phone, registration, vehicle_make, vehicle_model,
	services, total_price, submitted_at, fire_at, created_at`

// Create inserts a ticket.
func (s *Store) Create(ctx context.Context, t *Ticket) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO followup_tickets (id, customer_name, email, phone, registration, vehicle_make, vehicle_model,
			services, total_price, submitted_at, fire_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.CustomerName, t.Email, t.Phone, t.Registration, t.VehicleMake, t.VehicleModel,
		t.Services, t.TotalPrice, t.SubmittedAt, t.FireAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("followup: create ticket: %w", err)
	}
	return nil
}

// Get loads a ticket by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM followup_tickets WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("followup: get ticket: %w", err)
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, ErrTicketNotFound
	}
	return &tickets[0], nil
}

// ListDue returns tickets whose fire_at is on or before asOf, oldest first.
func (s *Store) ListDue(ctx context.Context, asOf time.Time) ([]Ticket, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM followup_tickets
		WHERE fire_at <= $1
		ORDER BY fire_at ASC`, asOf)
	if err != nil {
		return nil, fmt.Errorf("followup: list due: %w", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListPending returns upcoming tickets for the back-office view.
func (s *Store) ListPending(ctx context.Context, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM followup_tickets
		ORDER BY fire_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("followup: list pending: %w", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

// Delete consumes a ticket. Deleting an already-consumed ticket returns
// ErrTicketNotFound so callers can distinguish the no-op.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM followup_tickets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("followup: delete ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]Ticket, error) {
	var result []Ticket
	for rows.Next() {
		var t Ticket
		err := rows.Scan(
			&t.ID, &t.CustomerName, &t.Email, &t.Phone, &t.Registration,
			&t.VehicleMake, &t.VehicleModel, &t.Services, &t.TotalPrice,
			&t.SubmittedAt, &t.FireAt, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("followup: scan ticket: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
