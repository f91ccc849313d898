// Package models defines the rows the farmsync client keeps in its local
// database.
package models

import (
	"time"

	"github.com/farmdeck/farmsync/internal/api"
)

// PendingAction is a mutation made while offline that still has to reach
// the server. It leaves the queue only after the server applied it.
type PendingAction struct {
	// ID is generated on the client and stays the same across retries, so
	// the server can recognise a replay.
	ID     string
	Seq    int64
	Entity string
	Op     api.Operation
	// Payload is the partial record; it always carries "id".
	Payload    api.Record
	EnqueuedAt time.Time

	// Attempts counts failed drains; LastError is the reason of the last one.
	Attempts  int
	LastError string
}

// Action converts the queued row to its wire form.
func (p *PendingAction) Action() api.Action {
	return api.Action{
		ClientID: p.ID,
		TS:       p.EnqueuedAt,
		Entity:   p.Entity,
		Op:       p.Op,
		Data:     p.Payload,
	}
}

// CacheRecord is the local copy of one server record.
type CacheRecord struct {
	Entity    string
	ID        string
	Data      api.Record
	UpdatedAt time.Time
	// Provisional is set for optimistic copies written while offline and
	// cleared once a server copy replaces them.
	Provisional bool
}
