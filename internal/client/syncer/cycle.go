package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/client/client"
	"github.com/farmdeck/farmsync/internal/client/models"
	"github.com/farmdeck/farmsync/internal/client/store"
	"github.com/farmdeck/farmsync/internal/common"
)

// RunCycle drains the queue, pulls and folds. It is a no-op (Skipped) when
// the server is unreachable. A conflict stops the drain but not the pull; a
// transport failure aborts the cycle with the watermark untouched.
func (s *Syncer) RunCycle(ctx context.Context) (*CycleResult, error) {
	return s.cycle(ctx, false)
}

// Resync is RunCycle with a pull from the start of the journal. The stored
// watermark is replaced only when that fold commits.
func (s *Syncer) Resync(ctx context.Context) (*CycleResult, error) {
	return s.cycle(ctx, true)
}

func (s *Syncer) cycle(ctx context.Context, full bool) (*CycleResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer s.running.Store(false)

	if s.lock != nil {
		locked, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
		}
		if !locked {
			return nil, ErrCycleInProgress
		}
		defer func() { _ = s.lock.Unlock() }()
	}

	defer s.setState(StateIdle)

	if err := s.prober.Ping(ctx); err != nil {
		if s.classifier.Classify(err) == client.ClassConnectivity {
			s.logger.Debug(ctx, "server unreachable, cycle skipped", "error", err)
			return &CycleResult{Skipped: true}, nil
		}
		return nil, err
	}

	res := &CycleResult{}

	s.setState(StateDraining)
	applied, err := s.store.Queue.Drain(ctx, s.send)
	res.Applied = applied
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		res.Conflict = conflict
		s.logger.Warn(ctx, "queued action rejected", "action", conflict.ActionID,
			"entity", conflict.Entity, "op", conflict.Op, "reason", conflict.Reason)
	case err != nil:
		return res, fmt.Errorf("drain: %w", err)
	}

	s.setState(StatePulling)
	var since time.Time
	if !full {
		since, err = s.store.Watermark.Get(ctx)
		if err != nil {
			return res, err
		}
	}
	pulled, err := s.api.Pull(ctx, since)
	if err != nil {
		return res, fmt.Errorf("pull: %w", err)
	}

	s.setState(StateFolding)
	if err := s.fold(ctx, pulled, full); err != nil {
		return res, fmt.Errorf("fold: %w", err)
	}

	res.Changes = len(pulled.Changes)
	res.Tombstones = len(pulled.Tombstones)
	res.Watermark, err = s.store.Watermark.Get(ctx)
	if err != nil {
		return res, err
	}

	s.logger.Info(ctx, "sync cycle finished", "applied", res.Applied, "changes", res.Changes,
		"tombstones", res.Tombstones, "watermark", res.Watermark)
	return res, nil
}

// send replays one queued action as a single-action batch.
func (s *Syncer) send(ctx context.Context, a *models.PendingAction) error {
	resp, err := s.api.Batch(ctx, []api.Action{a.Action()})
	if err != nil {
		if s.classifier.Classify(err) == client.ClassValidation {
			return &ConflictError{ActionID: a.ID, Entity: a.Entity, Op: a.Op, Reason: err.Error()}
		}
		return err
	}

	for _, c := range resp.Conflicts {
		if c.ClientID == a.ID {
			return &ConflictError{ActionID: a.ID, Entity: a.Entity, Op: a.Op, Reason: c.Reason}
		}
	}
	for _, ap := range resp.Applied {
		if ap.ClientID == a.ID {
			return nil
		}
	}
	return fmt.Errorf("server did not report action %s", a.ID)
}

type foldItem struct {
	at     time.Time
	seq    int64
	change *api.ChangeEntry
	tomb   *api.Tombstone
}

// fold applies a pull in ledger (time, id) order inside one local transaction and
// advances the watermark to its serverTime. Records with a queued local
// action keep their local copy until the action is drained; tombstones
// always apply.
func (s *Syncer) fold(ctx context.Context, p *api.PullResponse, full bool) error {
	items := make([]foldItem, 0, len(p.Changes)+len(p.Tombstones))
	for i := range p.Changes {
		items = append(items, foldItem{at: p.Changes[i].ChangedAt, seq: p.Changes[i].ID, change: &p.Changes[i]})
	}
	for i := range p.Tombstones {
		items = append(items, foldItem{at: p.Tombstones[i].DeletedAt, seq: p.Tombstones[i].ID, tomb: &p.Tombstones[i]})
	}
	// journal rows and tombstones share one id sequence on the server
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].at.Equal(items[j].at) {
			return items[i].at.Before(items[j].at)
		}
		return items[i].seq < items[j].seq
	})

	return s.store.WithTx(ctx, func(ctx context.Context, r *store.Repos) error {
		pending, err := r.Queue.List(ctx)
		if err != nil {
			return err
		}
		shadowed := make(map[string]struct{}, len(pending))
		for _, a := range pending {
			shadowed[cacheKey(a.Entity, a.Payload.ID())] = struct{}{}
		}

		for _, it := range items {
			if it.tomb != nil {
				if !s.known(it.tomb.EntityType) {
					continue
				}
				if err := r.Cache.Delete(ctx, it.tomb.EntityType, it.tomb.EntityID); err != nil {
					return err
				}
				continue
			}

			c := it.change
			if !s.known(c.EntityType) {
				s.logger.Debug(ctx, "skipping change of unknown entity type", "entity", c.EntityType)
				continue
			}
			if c.Operation == api.OpDelete {
				if err := r.Cache.Delete(ctx, c.EntityType, c.EntityID); err != nil {
					return err
				}
				continue
			}
			if _, ok := shadowed[cacheKey(c.EntityType, c.EntityID)]; ok {
				continue
			}

			rec, err := changeRecord(c)
			if err != nil {
				return err
			}
			if err := r.Cache.Put(ctx, rec); err != nil {
				return err
			}
		}

		if full {
			if _, err := r.Watermark.Reset(ctx); err != nil {
				return err
			}
		}
		_, err = r.Watermark.Advance(ctx, p.ServerTime)
		return err
	})
}

func changeRecord(c *api.ChangeEntry) (*models.CacheRecord, error) {
	data := api.Record{}
	if len(c.Payload) > 0 {
		if err := json.Unmarshal(c.Payload, &data); err != nil {
			return nil, fmt.Errorf("invalid payload in change %d: %w", c.ID, err)
		}
	}
	if data == nil {
		data = api.Record{}
	}
	if data.ID() == "" {
		data["id"] = c.EntityID
	}

	updatedAt := c.ChangedAt
	if raw, ok := data["updatedAt"].(string); ok {
		if t, err := time.Parse(common.TimeFormat, raw); err == nil {
			updatedAt = t
		}
	}

	return &models.CacheRecord{
		Entity:    c.EntityType,
		ID:        c.EntityID,
		Data:      data,
		UpdatedAt: updatedAt,
	}, nil
}

func cacheKey(entity, id string) string {
	return entity + "/" + id
}
