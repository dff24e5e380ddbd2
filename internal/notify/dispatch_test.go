package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashdownmotors/garage-platform/internal/queue"
)

func TestPublisherEnqueuesBookingJob(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	p := NewPublisher(q, nil)

	require.NoError(t, p.BookingReceived(context.Background(), testBookingSubmission()))

	messages, err := q.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	var j job
	require.NoError(t, json.Unmarshal([]byte(messages[0].Body), &j))
	assert.Equal(t, jobBookingReceived, j.Kind)
	require.NotNil(t, j.Booking)
	assert.Equal(t, "AB12CDE", j.Booking.Vehicle.Registration)
}

func TestDispatcherDeliversQueuedJob(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	p := NewPublisher(q, nil)
	require.NoError(t, p.BookingReceived(context.Background(), testBookingSubmission()))

	sender := &mockEmailSender{}
	d := NewDispatcher(q, NewService(sender, []string{"workshop@example.com"}, nil), nil)

	messages, err := q.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	d.handle(context.Background(), messages[0].Body)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "AB12CDE")
}

func TestDispatcherDropsMalformedJob(t *testing.T) {
	q := queue.NewMemoryQueue(1)
	sender := &mockEmailSender{}
	d := NewDispatcher(q, NewService(sender, []string{"workshop@example.com"}, nil), nil)

	d.handle(context.Background(), "not json")
	d.handle(context.Background(), `{"kind":"unknown"}`)
	assert.Empty(t, sender.sent)
}
