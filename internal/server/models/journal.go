package models

import (
	"encoding/json"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
)

// ChangeLogEntry is an append-only journal row written in the same
// transaction as the mutation it describes.
type ChangeLogEntry struct {
	ID         int64
	TenantID   string
	EntityType string
	EntityID   string
	Operation  api.Operation
	Payload    json.RawMessage
	ChangedAt  time.Time
	ActorID    string
}

func (e *ChangeLogEntry) API() api.ChangeEntry {
	return api.ChangeEntry{
		ID:         e.ID,
		TenantID:   e.TenantID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Operation:  e.Operation,
		Payload:    e.Payload,
		ChangedAt:  e.ChangedAt,
		ActorID:    e.ActorID,
	}
}

// Tombstone marks a hard-deleted record so that clients can drop their copy.
type Tombstone struct {
	ID         int64
	TenantID   string
	EntityType string
	EntityID   string
	DeletedAt  time.Time
}

func (t *Tombstone) API() api.Tombstone {
	return api.Tombstone{
		ID:         t.ID,
		TenantID:   t.TenantID,
		EntityType: t.EntityType,
		EntityID:   t.EntityID,
		DeletedAt:  t.DeletedAt,
	}
}
