package service

import (
	"errors"

	"github.com/papercomputeco/raggadon/pkg/embeddings"
	"github.com/papercomputeco/raggadon/pkg/memory"
	"github.com/papercomputeco/raggadon/pkg/usage"
)

// Step names the stage of an operation that failed.
type Step string

const (
	StepValidate Step = "validate"
	StepEmbed    Step = "embed"
	StepPersist  Step = "persist"
	StepSearch   Step = "search"
	StepLedger   Step = "ledger"
)

// Error reports the step an operation failed at together with the cause, so
// operators can tell a provider outage from a store or ledger outage.
type Error struct {
	Step Step
	Err  error
}

func (e *Error) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsInvalidInput reports whether err was caused by a caller mistake.
func IsInvalidInput(err error) bool {
	return errors.Is(err, embeddings.ErrInvalidInput) ||
		errors.Is(err, memory.ErrInvalidInput) ||
		errors.Is(err, usage.ErrInvalidRecord)
}

// IsLedgerUnavailable reports whether err was caused by the usage ledger.
func IsLedgerUnavailable(err error) bool {
	return errors.Is(err, usage.ErrLedgerUnavailable)
}

func stepError(step Step, err error) error {
	return &Error{Step: step, Err: err}
}
