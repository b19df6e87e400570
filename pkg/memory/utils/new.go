// Package memoryutils builds the configured memory.Store.
package memoryutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/raggadon/pkg/memory"
	"github.com/papercomputeco/raggadon/pkg/memory/chromem"
	"github.com/papercomputeco/raggadon/pkg/memory/postgres"
	"github.com/papercomputeco/raggadon/pkg/memory/qdrant"
	"github.com/papercomputeco/raggadon/pkg/memory/sqlitevec"
)

type NewStoreOpts struct {
	ProviderType string
	Target       string
	APIKey       string
	Collection   string
	Dimensions   uint
	Logger       *slog.Logger
}

func NewStore(ctx context.Context, o *NewStoreOpts) (memory.Store, error) {
	switch o.ProviderType {
	case "postgres":
		return postgres.NewStore(ctx, postgres.Config{
			ConnString: o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "sqlite":
		return sqlitevec.NewStore(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewStore(ctx, qdrant.Config{
			Target:     o.Target,
			APIKey:     o.APIKey,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "memory":
		return chromem.NewStore(chromem.Config{
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported memory provider: %s", o.ProviderType)
	}
}
