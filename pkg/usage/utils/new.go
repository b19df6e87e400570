// Package usageutils builds the configured usage.Ledger.
package usageutils

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/raggadon/pkg/usage"
	"github.com/papercomputeco/raggadon/pkg/usage/breaker"
	"github.com/papercomputeco/raggadon/pkg/usage/inmemory"
	"github.com/papercomputeco/raggadon/pkg/usage/postgres"
	"github.com/papercomputeco/raggadon/pkg/usage/sqlite"
)

type NewLedgerOpts struct {
	ProviderType string
	Target       string
	UnitPrice    float64

	// Breaker wraps the ledger in a circuit breaker.
	Breaker            bool
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration

	Logger *slog.Logger
}

// NewLedger returns nil for the "none" provider; callers treat a nil ledger
// as permanently unavailable. A backend that cannot be reached or whose
// schema cannot be created yields an error wrapping usage.ErrLedgerUnavailable.
func NewLedger(ctx context.Context, o *NewLedgerOpts) (usage.Ledger, error) {
	var (
		ledger usage.Ledger
		err    error
	)

	switch o.ProviderType {
	case "none", "":
		return nil, nil
	case "postgres":
		ledger, err = postgres.NewLedger(ctx, o.Target, o.UnitPrice, o.Logger)
	case "sqlite":
		ledger, err = sqlite.NewLedger(o.Target, o.UnitPrice, o.Logger)
	case "memory":
		ledger = inmemory.NewLedger(o.UnitPrice, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported usage provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", usage.ErrLedgerUnavailable, o.ProviderType, err)
	}

	if o.Breaker {
		ledger = breaker.New(ledger, breaker.Config{
			MaxFailures: o.BreakerMaxFailures,
			Timeout:     o.BreakerTimeout,
		}, o.Logger)
	}

	return ledger, nil
}
