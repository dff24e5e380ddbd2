package followup

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	sent []Ticket
	err  error
}

func (r *recordingNotifier) FollowUpDue(_ context.Context, ticket Ticket) error {
	r.sent = append(r.sent, ticket)
	return r.err
}

func TestFireSendsOnceAndConsumesTicket(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ticket := testTicket()
	mock.ExpectQuery("SELECT (.+) FROM followup_tickets WHERE id").
		WithArgs(ticket.ID).
		WillReturnRows(pgxmock.NewRows(ticketRowColumns()).AddRow(ticketRow(ticket)...))
	mock.ExpectExec("DELETE FROM followup_tickets").
		WithArgs(ticket.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	notifier := &recordingNotifier{}
	worker := NewWorker(NewStore(mock), notifier, nil)

	require.NoError(t, worker.Fire(context.Background(), ticket.ID))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "AB12CDE", notifier.sent[0].Registration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFireMissingTicketIsNoOp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM followup_tickets WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(ticketRowColumns()))

	notifier := &recordingNotifier{}
	worker := NewWorker(NewStore(mock), notifier, nil)

	require.NoError(t, worker.Fire(context.Background(), id), "already-consumed ticket must not error")
	assert.Empty(t, notifier.sent)
}

func TestFireConsumesTicketEvenWhenSendFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ticket := testTicket()
	mock.ExpectQuery("SELECT (.+) FROM followup_tickets WHERE id").
		WithArgs(ticket.ID).
		WillReturnRows(pgxmock.NewRows(ticketRowColumns()).AddRow(ticketRow(ticket)...))
	mock.ExpectExec("DELETE FROM followup_tickets").
		WithArgs(ticket.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	notifier := &recordingNotifier{err: errors.New("smtp down")}
	worker := NewWorker(NewStore(mock), notifier, nil)

	require.NoError(t, worker.Fire(context.Background(), ticket.ID))
	assert.NoError(t, mock.ExpectationsWereMet(), "ticket consumed so it cannot fire twice")
}

func TestProcessDueFiresEachDueTicket(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ticket := testTicket()
	mock.ExpectQuery("SELECT (.+) FROM followup_tickets").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(ticketRowColumns()).AddRow(ticketRow(ticket)...))
	mock.ExpectQuery("SELECT (.+) FROM followup_tickets WHERE id").
		WithArgs(ticket.ID).
		WillReturnRows(pgxmock.NewRows(ticketRowColumns()).AddRow(ticketRow(ticket)...))
	mock.ExpectExec("DELETE FROM followup_tickets").
		WithArgs(ticket.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	notifier := &recordingNotifier{}
	worker := NewWorker(NewStore(mock), notifier, nil)

	fired, err := worker.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Len(t, notifier.sent, 1)
}
