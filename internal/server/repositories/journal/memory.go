package journal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/farmdeck/farmsync/internal/server/models"
)

// MemoryRepository is an in-process journal. Like records.MemoryRepository
// it ignores transactions.
type MemoryRepository struct {
	mu         sync.RWMutex
	changes    []models.ChangeLogEntry
	tombstones []models.Tombstone
	nextID     int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) RecordChange(_ context.Context, e *models.ChangeLogEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.changes = append(m.changes, *e)
	return e.ID, nil
}

func (m *MemoryRepository) RecordTombstone(_ context.Context, t *models.Tombstone) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	m.tombstones = append(m.tombstones, *t)
	return t.ID, nil
}

func (m *MemoryRepository) SelectChangesSince(_ context.Context, tenantID string, since time.Time) ([]*models.ChangeLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ChangeLogEntry
	for i := range m.changes {
		e := m.changes[i]
		if e.TenantID == tenantID && e.ChangedAt.After(since) {
			out = append(out, &e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ChangedAt.Equal(out[j].ChangedAt) {
			return out[i].ChangedAt.Before(out[j].ChangedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryRepository) SelectTombstonesSince(_ context.Context, tenantID string, since time.Time) ([]*models.Tombstone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Tombstone
	for i := range m.tombstones {
		t := m.tombstones[i]
		if t.TenantID == tenantID && t.DeletedAt.After(since) {
			out = append(out, &t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DeletedAt.Equal(out[j].DeletedAt) {
			return out[i].DeletedAt.Before(out[j].DeletedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
