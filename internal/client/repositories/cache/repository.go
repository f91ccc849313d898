// Package cache is the client's local durable copy of server records,
// keyed by entity type and id.
package cache

import (
	"context"

	"github.com/farmdeck/farmsync/internal/client/models"
)

type Repository interface {
	// Put inserts or replaces the record.
	Put(ctx context.Context, rec *models.CacheRecord) error
	// Get returns common.ErrorNotFound when the record is not cached.
	Get(ctx context.Context, entity, id string) (*models.CacheRecord, error)
	// Delete removes the record; a missing record is not an error.
	Delete(ctx context.Context, entity, id string) error
	// List returns the cached records of one entity type ordered by id.
	List(ctx context.Context, entity string) ([]*models.CacheRecord, error)
	// CountProvisional reports how many optimistic copies await confirmation.
	CountProvisional(ctx context.Context) (int, error)
}
