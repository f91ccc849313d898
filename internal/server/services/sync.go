package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/common"
	"github.com/farmdeck/farmsync/internal/dbx"
	"github.com/farmdeck/farmsync/internal/logging"
	"github.com/farmdeck/farmsync/internal/server/entities"
	"github.com/farmdeck/farmsync/internal/server/models"
	"github.com/farmdeck/farmsync/internal/server/repositories/repomanager"
)

// Conflict reasons that are not derived from a validation message.
const (
	ReasonUnknownEntity = "unknown entity type"
	ReasonUnknownOp     = "unknown operation"
	ReasonNotFound      = "record not found"
	ReasonInternal      = "internal error"
)

// PullResult is what a client folds into its cache. ServerTime is the next
// watermark.
type PullResult struct {
	ServerTime time.Time
	Changes    []*models.ChangeLogEntry
	Tombstones []*models.Tombstone
}

// SyncService implements batch apply and incremental pull.
type SyncService struct {
	db          dbx.TxBeginner
	repomanager repomanager.RepositoryManager
	registry    *entities.Registry
	logger      logging.Logger
	opts        options
}

func NewSyncService(db dbx.TxBeginner, m repomanager.RepositoryManager, reg *entities.Registry, l logging.Logger, opts ...Option) *SyncService {
	return &SyncService{
		db:          db,
		repomanager: m,
		registry:    reg,
		logger:      l.With("module", "sync_service"),
		opts:        buildOptions(opts),
	}
}

// Apply processes actions in order, each in its own transaction, and reports
// every action either as applied or as a conflict. A failing action never
// affects the others.
func (s *SyncService) Apply(ctx context.Context, tenantID, actorID string, actions []api.Action) *api.BatchResponse {
	resp := &api.BatchResponse{
		Applied:   []api.AppliedAction{},
		Conflicts: []api.Conflict{},
	}

	for _, a := range actions {
		entityID, reason := s.applyOne(ctx, tenantID, actorID, a)
		if reason != "" {
			s.logger.Debug(ctx, "action rejected", "tenant", tenantID, "client_id", a.ClientID, "entity", a.Entity, "op", a.Op, "reason", reason)
			resp.Conflicts = append(resp.Conflicts, api.Conflict{ClientID: a.ClientID, Reason: reason})
			continue
		}
		resp.Applied = append(resp.Applied, api.AppliedAction{
			ClientID: a.ClientID,
			Status:   api.StatusApplied,
			Entity:   a.Entity,
			Op:       a.Op,
			EntityID: entityID,
		})
	}

	s.logger.Info(ctx, "batch applied", "tenant", tenantID, "applied", len(resp.Applied), "conflicts", len(resp.Conflicts))
	return resp
}

// applyOne returns the affected entity id, or a non-empty conflict reason.
func (s *SyncService) applyOne(ctx context.Context, tenantID, actorID string, a api.Action) (string, string) {
	h, err := s.registry.Lookup(a.Entity)
	if err != nil {
		return "", ReasonUnknownEntity
	}
	if !a.Op.Valid() {
		return "", ReasonUnknownOp
	}

	data := a.Data
	if data == nil {
		data = api.Record{}
	}
	id := data.ID()
	m := entities.Mutation{TenantID: tenantID, ActorID: actorID, At: s.opts.now()}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		switch a.Op {
		case api.OpCreate:
			rec, _, err := h.Create(ctx, tx, m, data)
			if err != nil {
				return err
			}
			id = rec.ID()
			return nil
		case api.OpUpdate:
			_, err := h.Update(ctx, tx, m, id, data)
			return err
		case api.OpDelete:
			if id == "" {
				return &entities.ValidationError{Field: "id", Message: "is required"}
			}
			_, err := h.Remove(ctx, tx, m, id)
			return err
		}
		return common.ErrUnknownOp
	})

	switch {
	case err == nil:
		return id, ""
	case a.Op == api.OpCreate && isAlreadyExists(err):
		// a concurrent replay of the same create won the insert
		return id, ""
	case errors.Is(err, common.ErrValidation):
		return "", err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return "", ReasonNotFound
	case errors.Is(err, common.ErrUnknownOp):
		return "", ReasonUnknownOp
	}

	s.logger.Error(ctx, "apply action failed", "tenant", tenantID, "client_id", a.ClientID, "entity", a.Entity, "op", a.Op, "error", err)
	return "", ReasonInternal
}

// Pull returns journal rows and tombstones strictly newer than since.
// The server time is taken before the ledger is read; anything committed
// afterwards is newer than the returned watermark.
func (s *SyncService) Pull(ctx context.Context, tenantID string, since time.Time) (*PullResult, error) {
	res := &PullResult{ServerTime: s.opts.now().Add(-s.opts.pullLag)}

	err := dbx.WithTx(ctx, s.db, s.opts.readTx, func(ctx context.Context, tx dbx.DBTX) error {
		j := s.repomanager.Journal(tx)

		changes, err := j.SelectChangesSince(ctx, tenantID, since)
		if err != nil {
			return err
		}
		tombstones, err := j.SelectTombstonesSince(ctx, tenantID, since)
		if err != nil {
			return err
		}
		res.Changes = changes
		res.Tombstones = tombstones
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pull changes: %w", err)
	}

	s.logger.Debug(ctx, "pull served", "tenant", tenantID, "since", since, "changes", len(res.Changes), "tombstones", len(res.Tombstones))
	return res, nil
}
