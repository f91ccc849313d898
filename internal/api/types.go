// Package api holds the JSON wire types exchanged between the sync client and
// the server. Both sides import it so that the field names stay in one place.
package api

import (
	"encoding/json"
	"time"
)

// Operation is the kind of mutation carried by a queued action or a journal row.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpUpsert Operation = "UPSERT"
	OpDelete Operation = "DELETE"
)

// Valid reports whether op is one a client may send in a batch. UPSERT only
// appears in the journal, written by PUT on the records API.
func (op Operation) Valid() bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Record is the public shape of an entity record: id, timestamps and the
// entity's own fields flattened into one object.
type Record map[string]any

// ID returns the "id" field when it is a string.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Action is one queued client mutation as sent to POST /sync/batch.
type Action struct {
	ClientID string    `json:"clientId"`
	TS       time.Time `json:"ts"`
	Entity   string    `json:"entity"`
	Op       Operation `json:"op"`
	Data     Record    `json:"data"`
}

type BatchRequest struct {
	Actions []Action `json:"actions"`
}

const StatusApplied = "applied"

type AppliedAction struct {
	ClientID string    `json:"clientId"`
	Status   string    `json:"status"`
	Entity   string    `json:"entity"`
	Op       Operation `json:"op"`
	EntityID string    `json:"entityId"`
}

type Conflict struct {
	ClientID string `json:"clientId"`
	Reason   string `json:"reason"`
}

// BatchResponse lists every action of the request exactly once, either in
// Applied or in Conflicts.
type BatchResponse struct {
	Applied   []AppliedAction `json:"applied"`
	Conflicts []Conflict      `json:"conflicts"`
}

// ChangeEntry is one row of the per-tenant change journal.
type ChangeEntry struct {
	ID         int64           `json:"id"`
	TenantID   string          `json:"tenantId"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Operation  Operation       `json:"operation"`
	Payload    json.RawMessage `json:"payload"`
	ChangedAt  time.Time       `json:"changedAt"`
	ActorID    string          `json:"actorId,omitempty"`
}

// Tombstone records that an entity was deleted.
type Tombstone struct {
	ID         int64     `json:"id"`
	TenantID   string    `json:"tenantId"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	DeletedAt  time.Time `json:"deletedAt"`
}

// PullResponse is returned by GET /sync/changes. ServerTime becomes the
// client's next watermark.
type PullResponse struct {
	ServerTime time.Time     `json:"serverTime"`
	Changes    []ChangeEntry `json:"changes"`
	Tombstones []Tombstone   `json:"tombstones"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// ListResponse wraps GET /api/v1/{entity}.
type ListResponse struct {
	Items []Record `json:"items"`
}
