package audit

import (
	"context"
	"fmt"

	"github.com/modtag/modtag/internal/db"
)

// NewSink creates an audit sink for the given store type.
// Supported types: "memory", "postgres".
func NewSink(ctx context.Context, storeType, dbDSN string) (Sink, error) {
	switch storeType {
	case "memory":
		return NewMemorySink(), nil
	case "postgres":
		pool, err := db.NewPool(ctx, dbDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		sink, err := NewPostgresSink(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
