// Package queue provides the notification delivery queue. Enqueued
// payloads are JSON-encoded notification jobs drained by the dispatcher.
package queue

import "context"

// Message is a single queued payload.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Queue is the transport between the API and the notification dispatcher.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}
