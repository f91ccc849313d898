package entities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/common"
	"github.com/farmdeck/farmsync/internal/dbx"
	"github.com/farmdeck/farmsync/internal/server/models"
	"github.com/farmdeck/farmsync/internal/server/repositories/journal"
	"github.com/farmdeck/farmsync/internal/server/repositories/records"
)

// Repositories is the part of repomanager.RepositoryManager handlers need.
type Repositories interface {
	Records(db dbx.DBTX) records.Repository
	Journal(db dbx.DBTX) journal.Repository
}

// Mutation carries who is writing, for which tenant, and the server time
// stamped on the record and its journal row.
type Mutation struct {
	TenantID string
	ActorID  string
	At       time.Time
}

// Handler reads and writes one entity type. Every mutating method writes
// exactly one journal row or tombstone through tx, or none when it changed
// nothing. tx must be the caller's transaction.
type Handler interface {
	Schema() Schema
	Get(ctx context.Context, tx dbx.DBTX, tenantID, id string) (api.Record, error)
	List(ctx context.Context, tx dbx.DBTX, tenantID string) ([]api.Record, error)
	// Create stores a new record. When the id already exists the stored
	// record is returned with created=false and nothing is written.
	Create(ctx context.Context, tx dbx.DBTX, m Mutation, data api.Record) (rec api.Record, created bool, err error)
	// Update merges patch into the stored fields; a null value removes a field.
	Update(ctx context.Context, tx dbx.DBTX, m Mutation, id string, patch api.Record) (api.Record, error)
	// Upsert replaces the record fields, creating the record if needed.
	Upsert(ctx context.Context, tx dbx.DBTX, m Mutation, id string, data api.Record) (api.Record, error)
	// Remove hard-deletes the record and leaves a tombstone. Removing a
	// missing record reports false and writes nothing.
	Remove(ctx context.Context, tx dbx.DBTX, m Mutation, id string) (bool, error)
}

type schemaHandler struct {
	schema Schema
	repos  Repositories
}

// NewHandler returns a Handler that validates against schema.
func NewHandler(schema Schema, repos Repositories) Handler {
	return &schemaHandler{schema: schema, repos: repos}
}

func (h *schemaHandler) Schema() Schema { return h.schema }

func (h *schemaHandler) Get(ctx context.Context, tx dbx.DBTX, tenantID, id string) (api.Record, error) {
	rec, err := h.repos.Records(tx).Get(ctx, tenantID, h.schema.Entity, id)
	if err != nil {
		return nil, err
	}
	return rec.Public(), nil
}

func (h *schemaHandler) List(ctx context.Context, tx dbx.DBTX, tenantID string) ([]api.Record, error) {
	recs, err := h.repos.Records(tx).List(ctx, tenantID, h.schema.Entity)
	if err != nil {
		return nil, err
	}
	out := make([]api.Record, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Public())
	}
	return out, nil
}

func (h *schemaHandler) Create(ctx context.Context, tx dbx.DBTX, m Mutation, data api.Record) (api.Record, bool, error) {
	id := data.ID()
	if err := validateID(id); err != nil {
		return nil, false, err
	}

	repo := h.repos.Records(tx)
	existing, err := repo.Get(ctx, m.TenantID, h.schema.Entity, id)
	switch {
	case err == nil:
		return existing.Public(), false, nil
	case !errors.Is(err, common.ErrorNotFound):
		return nil, false, err
	}

	fields := dropNulls(stripReserved(data))
	if err := h.schema.Validate(ctx, fields, h.refChecker(tx, m.TenantID)); err != nil {
		return nil, false, err
	}

	rec := &models.Record{
		TenantID:   m.TenantID,
		EntityType: h.schema.Entity,
		ID:         id,
		Data:       fields,
		CreatedAt:  m.At,
		UpdatedAt:  m.At,
	}
	if err := repo.Insert(ctx, rec); err != nil {
		return nil, false, err
	}
	pub := rec.Public()
	if err := h.recordChange(ctx, tx, m, id, api.OpCreate, pub); err != nil {
		return nil, false, err
	}
	return pub, true, nil
}

func (h *schemaHandler) Update(ctx context.Context, tx dbx.DBTX, m Mutation, id string, patch api.Record) (api.Record, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}

	repo := h.repos.Records(tx)
	rec, err := repo.Get(ctx, m.TenantID, h.schema.Entity, id)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]any, len(rec.Data)+len(patch))
	for k, v := range rec.Data {
		merged[k] = v
	}
	for k, v := range stripReserved(patch) {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	if err := h.schema.Validate(ctx, merged, h.refChecker(tx, m.TenantID)); err != nil {
		return nil, err
	}

	rec.Data = merged
	rec.UpdatedAt = m.At
	if err := repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	pub := rec.Public()
	if err := h.recordChange(ctx, tx, m, id, api.OpUpdate, pub); err != nil {
		return nil, err
	}
	return pub, nil
}

func (h *schemaHandler) Upsert(ctx context.Context, tx dbx.DBTX, m Mutation, id string, data api.Record) (api.Record, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	fields := dropNulls(stripReserved(data))
	if err := h.schema.Validate(ctx, fields, h.refChecker(tx, m.TenantID)); err != nil {
		return nil, err
	}

	rec := &models.Record{
		TenantID:   m.TenantID,
		EntityType: h.schema.Entity,
		ID:         id,
		Data:       fields,
		CreatedAt:  m.At,
		UpdatedAt:  m.At,
	}
	if _, err := h.repos.Records(tx).Upsert(ctx, rec); err != nil {
		return nil, err
	}
	pub := rec.Public()
	if err := h.recordChange(ctx, tx, m, id, api.OpUpsert, pub); err != nil {
		return nil, err
	}
	return pub, nil
}

func (h *schemaHandler) Remove(ctx context.Context, tx dbx.DBTX, m Mutation, id string) (bool, error) {
	removed, err := h.repos.Records(tx).Delete(ctx, m.TenantID, h.schema.Entity, id)
	if err != nil || !removed {
		return false, err
	}
	_, err = h.repos.Journal(tx).RecordTombstone(ctx, &models.Tombstone{
		TenantID:   m.TenantID,
		EntityType: h.schema.Entity,
		EntityID:   id,
		DeletedAt:  m.At,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (h *schemaHandler) recordChange(ctx context.Context, tx dbx.DBTX, m Mutation, id string, op api.Operation, pub api.Record) error {
	payload, err := json.Marshal(pub)
	if err != nil {
		return fmt.Errorf("encode change payload: %w", err)
	}
	_, err = h.repos.Journal(tx).RecordChange(ctx, &models.ChangeLogEntry{
		TenantID:   m.TenantID,
		EntityType: h.schema.Entity,
		EntityID:   id,
		Operation:  op,
		Payload:    payload,
		ChangedAt:  m.At,
		ActorID:    m.ActorID,
	})
	return err
}

func (h *schemaHandler) refChecker(tx dbx.DBTX, tenantID string) RefChecker {
	repo := h.repos.Records(tx)
	return func(ctx context.Context, entityType, id string) (bool, error) {
		return repo.Exists(ctx, tenantID, entityType, id)
	}
}

func dropNulls(data map[string]any) map[string]any {
	for k, v := range data {
		if v == nil {
			delete(data, k)
		}
	}
	return data
}
