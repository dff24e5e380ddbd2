package dvla

import (
	"errors"
	"fmt"
)

// ErrorKind classifies lookup failures so callers can branch without string
// matching.
type ErrorKind string

const (
	// KindNotFound means the provider has no record for the registration.
	KindNotFound ErrorKind = "not_found"
	// KindInvalidFormat means the provider rejected the registration shape.
	KindInvalidFormat ErrorKind = "invalid_format"
	// KindRateLimited means the provider throttled us; the caller decides
	// whether to back off. The client never retries on its own.
	KindRateLimited ErrorKind = "rate_limited"
	// KindUpstream covers any other non-2xx response or an unparseable body.
	KindUpstream ErrorKind = "upstream"
	// KindTransport covers network-level failures before a response arrived.
	// Callers treat it like KindUpstream but it is logged distinctly.
	KindTransport ErrorKind = "transport"
)

// LookupError is returned for every expected failure class.
type LookupError struct {
	Kind    ErrorKind
	Status  int
	Message string
	cause   error
}

func (e *LookupError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("dvla: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("dvla: %s: %s", e.Kind, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.cause
}

// KindOf extracts the error kind, defaulting to KindUpstream for unknown
// errors so the session state machine stays simple.
func KindOf(err error) ErrorKind {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUpstream
}
