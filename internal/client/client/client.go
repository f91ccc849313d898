package client

import (
	"context"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
)

// SyncAPI is the server surface the sync orchestrator needs.
type SyncAPI interface {
	Batch(ctx context.Context, actions []api.Action) (*api.BatchResponse, error)
	Pull(ctx context.Context, since time.Time) (*api.PullResponse, error)
}

// RecordsAPI is the CRUD surface used for direct writes.
type RecordsAPI interface {
	List(ctx context.Context, entity string) ([]api.Record, error)
	Get(ctx context.Context, entity, id string) (api.Record, error)
	Create(ctx context.Context, entity string, data api.Record) (api.Record, error)
	Update(ctx context.Context, entity, id string, patch api.Record) (api.Record, error)
	Delete(ctx context.Context, entity, id string) error
}

// Prober reports whether the server can be reached.
type Prober interface {
	Ping(ctx context.Context) error
}

type Client interface {
	SyncAPI
	RecordsAPI
	Prober
}
