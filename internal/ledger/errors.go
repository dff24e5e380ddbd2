package ledger

import "errors"

var (
	// ErrNotFound means no booking row exists for the given id.
	ErrNotFound = errors.New("ledger: booking not found")
	// ErrInvalidStatus means the value is outside the closed status enum.
	ErrInvalidStatus = errors.New("ledger: invalid status")
	// ErrConfirmationRequired means a delete was attempted without the
	// explicit confirmation flag.
	ErrConfirmationRequired = errors.New("ledger: delete requires confirmation")
)
