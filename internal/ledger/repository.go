package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface so tests can inject pgxmock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists booking rows. Canonical column order: timestamp,
// registration, contact, vehicle, services, price, notes, status.
type Repository struct {
	db DB
}

// NewRepository creates a booking repository.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("ledger: db required")
	}
	return &Repository{db: db}
}

const bookingColumns = `id, submitted_at, registration, customer_name, customer_email, customer_phone,
	vehicle_make, vehicle_model, vehicle_year, services, total_price, notes, status, created_at, updated_at`

// Append always inserts a new row with status New. It never merges or
// deduplicates, even for a repeated registration+timestamp.
func (r *Repository) Append(ctx context.Context, sub BookingSubmission) (*Record, error) {
	id := uuid.New()
	now := time.Now().UTC()

	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (id, submitted_at, registration, customer_name, customer_email, customer_phone,
			vehicle_make, vehicle_model, vehicle_year, services, total_price, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		id, sub.Timestamp, sub.Vehicle.Registration,
		sub.Customer.Name, sub.Customer.Email, sub.Customer.Phone,
		sub.Vehicle.Make, sub.Vehicle.Model, sub.Vehicle.Year,
		JoinServices(sub.SelectedServices), sub.TotalPrice, sub.Notes,
		string(StatusNew), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: append booking: %w", err)
	}

	return &Record{
		ID:                id,
		BookingSubmission: sub,
		Status:            StatusNew,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// UpdateStatus mutates the lifecycle status. Values outside the closed enum
// are rejected before any write.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, raw string) error {
	status, err := ParseStatus(raw)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("ledger: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a row permanently. Callers must obtain explicit confirmation
// first; deletion is never implied by a status change.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ledger: delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get fetches one booking row.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("ledger: get booking: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// Filter narrows a List call. Search matches customer, vehicle and service
// fields case-insensitively. Pagination is offset-based.
type Filter struct {
	Search string
	Status string
	Offset int
	Limit  int
}

// List returns a page of bookings and the total count matching the filter.
func (r *Repository) List(ctx context.Context, f Filter) ([]Record, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where := []string{"TRUE"}
	args := []any{}

	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(customer_name ILIKE $%d OR customer_email ILIKE $%d
			OR customer_phone ILIKE $%d OR registration ILIKE $%d
			OR vehicle_make ILIKE $%d OR vehicle_model ILIKE $%d OR services ILIKE $%d)`,
			n, n, n, n, n, n, n))
	}
	if f.Status != "" {
		status, err := ParseStatus(f.Status)
		if err != nil {
			return nil, 0, err
		}
		args = append(args, string(status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE `+clause, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ledger: count bookings: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT `+bookingColumns+`
		FROM bookings WHERE %s
		ORDER BY submitted_at DESC
		LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: list bookings: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	var result []Record
	for rows.Next() {
		var rec Record
		var services, status string
		err := rows.Scan(
			&rec.ID, &rec.Timestamp, &rec.Vehicle.Registration,
			&rec.Customer.Name, &rec.Customer.Email, &rec.Customer.Phone,
			&rec.Vehicle.Make, &rec.Vehicle.Model, &rec.Vehicle.Year,
			&services, &rec.TotalPrice, &rec.Notes,
			&status, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan booking: %w", err)
		}
		rec.Status = Status(status)
		if services != "" {
			rec.SelectedServices = trimAll(strings.Split(services, ","))
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
