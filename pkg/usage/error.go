package usage

import "errors"

var (
	// ErrLedgerUnavailable is returned when the accounting store cannot
	// accept a write or answer a read.
	ErrLedgerUnavailable = errors.New("usage ledger unavailable")

	// ErrInvalidRecord is returned for a blank project, an unknown usage type
	// or a negative token count.
	ErrInvalidRecord = errors.New("invalid usage record")
)
