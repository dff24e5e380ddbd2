package followup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticketRowColumns() []string {
	return []string{
		"id", "customer_name", "email", "phone", "registration", "vehicle_make", "vehicle_model",
		"services", "total_price", "submitted_at", "fire_at", "created_at",
	}
}

func testTicket() Ticket {
	return Ticket{
		ID:           uuid.New(),
		CustomerName: "Jo Bloggs",
		Email:        "jo@example.com",
		Phone:        "07700900123",
		Registration: "AB12CDE",
		VehicleMake:  "FORD",
		VehicleModel: "Focus",
		Services:     "MOT, Oil Change",
		TotalPrice:   149,
		SubmittedAt:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		FireAt:       time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
		CreatedAt:    time.Date(2024, 1, 1, 10, 0, 1, 0, time.UTC),
	}
}

func ticketRow(t Ticket) []any {
	return []any{
		t.ID, t.CustomerName, t.Email, t.Phone, t.Registration, t.VehicleMake, t.VehicleModel,
		t.Services, t.TotalPrice, t.SubmittedAt, t.FireAt, t.CreatedAt,
	}
}

func TestCreateAssignsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO followup_tickets").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ticket := testTicket()
	ticket.ID = uuid.Nil
	store := NewStore(mock)
	require.NoError(t, store.Create(context.Background(), &ticket))

	assert.NotEqual(t, uuid.Nil, ticket.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMissingTicket(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM followup_tickets WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(ticketRowColumns()))

	store := NewStore(mock)
	_, err = store.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestListDue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ticket := testTicket()
	asOf := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM followup_tickets").
		WithArgs(asOf).
		WillReturnRows(pgxmock.NewRows(ticketRowColumns()).AddRow(ticketRow(ticket)...))

	store := NewStore(mock)
	due, err := store.ListDue(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, ticket.ID, due[0].ID)
	assert.Equal(t, "AB12CDE", due[0].Registration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteConsumedTicket(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("DELETE FROM followup_tickets").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	store := NewStore(mock)
	assert.ErrorIs(t, store.Delete(context.Background(), id), ErrTicketNotFound)
}
