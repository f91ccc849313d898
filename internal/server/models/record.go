// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/common"
)

// Record is one stored entity row. Data holds the entity's own fields;
// id and timestamps live in their own columns.
type Record struct {
	TenantID   string
	EntityType string
	ID         string
	Data       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Public flattens the record into the shape returned to clients and written
// into the change journal.
func (r *Record) Public() api.Record {
	out := make(api.Record, len(r.Data)+3)
	for k, v := range r.Data {
		out[k] = v
	}
	out["id"] = r.ID
	out["createdAt"] = r.CreatedAt.UTC().Format(common.TimeFormat)
	out["updatedAt"] = r.UpdatedAt.UTC().Format(common.TimeFormat)
	return out
}
