package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/client/client"
	"github.com/farmdeck/farmsync/internal/client/models"
	"github.com/farmdeck/farmsync/internal/client/store"
	"github.com/farmdeck/farmsync/internal/common"
)

// errQueuedBehind is the cause recorded when a write is queued although the
// server may be reachable: older queued writes have to reach it first.
var errQueuedBehind = errors.New("earlier writes are still queued")

// writeDirect reports whether a write may go straight to the server. It may
// not while anything is queued, so writes reach the server in the order
// they were made.
func (s *Syncer) writeDirect(ctx context.Context) (bool, error) {
	n, err := s.store.Queue.Len(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Create writes a new record. Without an "id" in data one is generated
// here, so a queued replay creates the same record. When the write is
// queued the returned record is a provisional local copy.
func (s *Syncer) Create(ctx context.Context, entity string, data api.Record) (api.Record, error) {
	data = data.Clone()
	if data.ID() == "" {
		data["id"] = s.newID()
	}

	direct, err := s.writeDirect(ctx)
	if err != nil {
		return nil, err
	}
	cause := errQueuedBehind
	if direct {
		rec, err := s.api.Create(ctx, entity, data)
		if err == nil {
			return rec, s.storeConfirmed(ctx, entity, rec)
		}
		if s.classifier.Classify(err) != client.ClassConnectivity {
			return nil, err
		}
		cause = err
	}

	now := s.now().UTC()
	stamp := now.Format(common.TimeFormat)
	optimistic := data.Clone()
	optimistic["createdAt"] = stamp
	optimistic["updatedAt"] = stamp

	if err := s.storeOffline(ctx, entity, api.OpCreate, data, optimistic, now, cause); err != nil {
		return nil, err
	}
	return optimistic, nil
}

// Update applies a partial patch; a nil value removes the field.
func (s *Syncer) Update(ctx context.Context, entity, id string, patch api.Record) (api.Record, error) {
	patch = patch.Clone()
	patch["id"] = id

	direct, err := s.writeDirect(ctx)
	if err != nil {
		return nil, err
	}
	cause := errQueuedBehind
	if direct {
		rec, err := s.api.Update(ctx, entity, id, patch)
		if err == nil {
			return rec, s.storeConfirmed(ctx, entity, rec)
		}
		if s.classifier.Classify(err) != client.ClassConnectivity {
			return nil, err
		}
		cause = err
	}

	now := s.now().UTC()
	var merged api.Record
	err = s.store.WithTx(ctx, func(ctx context.Context, r *store.Repos) error {
		base := api.Record{"id": id}
		if cached, err := r.Cache.Get(ctx, entity, id); err == nil {
			base = cached.Data
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		merged = mergePatch(base, patch)
		merged["updatedAt"] = now.Format(common.TimeFormat)
		return s.queueLocal(ctx, r, entity, api.OpUpdate, patch, merged, now)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "update queued", "entity", entity, "id", id, "cause", cause)
	return merged, nil
}

// Delete removes a record; deleting a missing record succeeds.
func (s *Syncer) Delete(ctx context.Context, entity, id string) error {
	direct, err := s.writeDirect(ctx)
	if err != nil {
		return err
	}
	cause := errQueuedBehind
	if direct {
		err := s.api.Delete(ctx, entity, id)
		if err == nil {
			return s.store.Cache.Delete(ctx, entity, id)
		}
		if s.classifier.Classify(err) != client.ClassConnectivity {
			return err
		}
		cause = err
	}

	now := s.now().UTC()
	return s.storeOffline(ctx, entity, api.OpDelete, api.Record{"id": id}, nil, now, cause)
}

// Get reads the local cache.
func (s *Syncer) Get(ctx context.Context, entity, id string) (*models.CacheRecord, error) {
	return s.store.Cache.Get(ctx, entity, id)
}

// List reads the local cache.
func (s *Syncer) List(ctx context.Context, entity string) ([]*models.CacheRecord, error) {
	return s.store.Cache.List(ctx, entity)
}

func (s *Syncer) storeConfirmed(ctx context.Context, entity string, rec api.Record) error {
	return s.store.Cache.Put(ctx, &models.CacheRecord{
		Entity:    entity,
		ID:        rec.ID(),
		Data:      rec,
		UpdatedAt: s.now().UTC(),
	})
}

func (s *Syncer) storeOffline(ctx context.Context, entity string, op api.Operation, payload, local api.Record, now time.Time, cause error) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, r *store.Repos) error {
		return s.queueLocal(ctx, r, entity, op, payload, local, now)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "write queued", "entity", entity, "op", op, "id", payload.ID(), "cause", cause)
	return nil
}

// queueLocal writes the optimistic copy (or removes it when local is nil)
// and enqueues the action in the caller's transaction.
func (s *Syncer) queueLocal(ctx context.Context, r *store.Repos, entity string, op api.Operation, payload, local api.Record, now time.Time) error {
	if !s.known(entity) {
		return fmt.Errorf("%w: %s", common.ErrUnknownEntity, entity)
	}
	id := payload.ID()
	if local == nil {
		if err := r.Cache.Delete(ctx, entity, id); err != nil {
			return err
		}
	} else {
		err := r.Cache.Put(ctx, &models.CacheRecord{
			Entity:      entity,
			ID:          id,
			Data:        local,
			UpdatedAt:   now,
			Provisional: true,
		})
		if err != nil {
			return err
		}
	}

	return r.Queue.Enqueue(ctx, &models.PendingAction{
		ID:         s.newID(),
		Entity:     entity,
		Op:         op,
		Payload:    payload,
		EnqueuedAt: now,
	})
}

func mergePatch(base, patch api.Record) api.Record {
	out := base.Clone()
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
