package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/dbx"
	"github.com/farmdeck/farmsync/internal/logging"
	"github.com/farmdeck/farmsync/internal/server/entities"
	"github.com/google/uuid"
)

// RecordsService is the direct-write CRUD surface. It goes through the same
// handlers as batch apply, so direct writes are journaled too.
type RecordsService struct {
	db       *sql.DB
	registry *entities.Registry
	logger   logging.Logger
	opts     options
}

func NewRecordsService(db *sql.DB, reg *entities.Registry, l logging.Logger, opts ...Option) *RecordsService {
	return &RecordsService{
		db:       db,
		registry: reg,
		logger:   l.With("module", "records_service"),
		opts:     buildOptions(opts),
	}
}

func (s *RecordsService) List(ctx context.Context, tenantID, entity string) ([]api.Record, error) {
	h, err := s.registry.Lookup(entity)
	if err != nil {
		return nil, err
	}
	return h.List(ctx, s.db, tenantID)
}

func (s *RecordsService) Get(ctx context.Context, tenantID, entity, id string) (api.Record, error) {
	h, err := s.registry.Lookup(entity)
	if err != nil {
		return nil, err
	}
	return h.Get(ctx, s.db, tenantID, id)
}

// Create stores a new record, generating its id when data has none.
// created is false when a record with the given id already existed.
func (s *RecordsService) Create(ctx context.Context, tenantID, actorID, entity string, data api.Record) (rec api.Record, created bool, err error) {
	h, err := s.registry.Lookup(entity)
	if err != nil {
		return nil, false, err
	}

	data = data.Clone()
	if data.ID() == "" {
		data["id"] = uuid.NewString()
	}
	m := entities.Mutation{TenantID: tenantID, ActorID: actorID, At: s.opts.now()}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		rec, created, err = h.Create(ctx, tx, m, data)
		return err
	})
	if err != nil && isAlreadyExists(err) {
		rec, err = h.Get(ctx, s.db, tenantID, data.ID())
		return rec, false, err
	}
	return rec, created, err
}

func (s *RecordsService) Update(ctx context.Context, tenantID, actorID, entity, id string, patch api.Record) (api.Record, error) {
	h, err := s.registry.Lookup(entity)
	if err != nil {
		return nil, err
	}
	if pid := patch.ID(); pid != "" && pid != id {
		return nil, &entities.ValidationError{Field: "id", Message: "does not match the path"}
	}

	m := entities.Mutation{TenantID: tenantID, ActorID: actorID, At: s.opts.now()}
	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (api.Record, error) {
		return h.Update(ctx, tx, m, id, patch)
	})
}

func (s *RecordsService) Upsert(ctx context.Context, tenantID, actorID, entity, id string, data api.Record) (api.Record, error) {
	h, err := s.registry.Lookup(entity)
	if err != nil {
		return nil, err
	}
	if did := data.ID(); did != "" && did != id {
		return nil, &entities.ValidationError{Field: "id", Message: "does not match the path"}
	}

	m := entities.Mutation{TenantID: tenantID, ActorID: actorID, At: s.opts.now()}
	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (api.Record, error) {
		return h.Upsert(ctx, tx, m, id, data)
	})
}

// Delete removes the record. Deleting a missing record is not an error.
func (s *RecordsService) Delete(ctx context.Context, tenantID, actorID, entity, id string) error {
	h, err := s.registry.Lookup(entity)
	if err != nil {
		return err
	}

	m := entities.Mutation{TenantID: tenantID, ActorID: actorID, At: s.opts.now()}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		removed, err := h.Remove(ctx, tx, m, id)
		if err == nil && !removed {
			s.logger.Debug(ctx, "delete of missing record", "tenant", tenantID, "entity", entity, "id", id)
		}
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error(ctx, "delete failed", "tenant", tenantID, "entity", entity, "id", id, "error", err)
	}
	return err
}
