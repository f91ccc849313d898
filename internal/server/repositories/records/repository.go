// Package records declares the storage contract for tenant-scoped entity
// records. Every method is bound to the DBTX it was constructed with, so a
// service can run several repositories inside one transaction.
package records

import (
	"context"

	"github.com/farmdeck/farmsync/internal/server/models"
)

// Repository stores entity records keyed by (tenant, entity type, id).
type Repository interface {
	// Get returns the record or common.ErrorNotFound.
	Get(ctx context.Context, tenantID, entityType, id string) (*models.Record, error)

	// Exists reports whether the record is present. Used for reference checks.
	Exists(ctx context.Context, tenantID, entityType, id string) (bool, error)

	// Insert adds a new record. A duplicate key surfaces as the driver's
	// unique-violation error, wrapped.
	Insert(ctx context.Context, rec *models.Record) error

	// Update replaces data and updated_at of an existing record.
	// Returns common.ErrorNotFound when nothing matched.
	Update(ctx context.Context, rec *models.Record) error

	// Upsert inserts or replaces the record and reports whether it was created.
	// rec.CreatedAt is set to the stored value.
	Upsert(ctx context.Context, rec *models.Record) (bool, error)

	// Delete removes the record and reports whether a row was removed.
	Delete(ctx context.Context, tenantID, entityType, id string) (bool, error)

	// List returns all records of one entity type ordered by creation.
	List(ctx context.Context, tenantID, entityType string) ([]*models.Record, error)
}
