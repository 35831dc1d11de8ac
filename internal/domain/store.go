package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ChartStore persists computed chart records. Create returns the stored
// record, which is an earlier one when the cache key was already taken.
type ChartStore interface {
	Create(ctx context.Context, rec ChartRecord) (ChartRecord, error)
	GetByID(ctx context.Context, id string) (ChartRecord, error)
	GetByCacheKey(ctx context.Context, key string) (ChartRecord, error)
	List(ctx context.Context, opts ListOpts) ([]ChartRecord, error)
	Count(ctx context.Context) (int64, error)
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
}
