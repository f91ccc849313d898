// Package journal stores the per-tenant change log and tombstone ledger that
// incremental pull reads from. Writes are meant to share the transaction of
// the entity mutation they describe.
package journal

import (
	"context"
	"time"

	"github.com/farmdeck/farmsync/internal/server/models"
)

type Repository interface {
	// RecordChange appends a change row and returns its id.
	RecordChange(ctx context.Context, entry *models.ChangeLogEntry) (int64, error)

	// RecordTombstone appends a tombstone and returns its id.
	RecordTombstone(ctx context.Context, t *models.Tombstone) (int64, error)

	// SelectChangesSince returns rows with changed_at strictly after since,
	// ascending by (changed_at, id).
	SelectChangesSince(ctx context.Context, tenantID string, since time.Time) ([]*models.ChangeLogEntry, error)

	// SelectTombstonesSince returns rows with deleted_at strictly after since,
	// ascending by (deleted_at, id).
	SelectTombstonesSince(ctx context.Context, tenantID string, since time.Time) ([]*models.Tombstone, error)
}
