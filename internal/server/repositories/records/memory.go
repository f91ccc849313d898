package records

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/farmdeck/farmsync/internal/common"
	"github.com/farmdeck/farmsync/internal/server/models"
)

// MemoryRepository keeps records in process memory. It is not transactional:
// writes made inside a transaction that later rolls back stay visible.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]*models.Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[string]*models.Record)}
}

func key(tenantID, entityType, id string) string {
	return tenantID + "\x00" + entityType + "\x00" + id
}

func clone(r *models.Record) *models.Record {
	c := *r
	c.Data = make(map[string]any, len(r.Data))
	for k, v := range r.Data {
		c.Data[k] = v
	}
	return &c
}

func (m *MemoryRepository) Get(_ context.Context, tenantID, entityType, id string) (*models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rows[key(tenantID, entityType, id)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(r), nil
}

func (m *MemoryRepository) Exists(_ context.Context, tenantID, entityType, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rows[key(tenantID, entityType, id)]
	return ok, nil
}

func (m *MemoryRepository) Insert(_ context.Context, rec *models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(rec.TenantID, rec.EntityType, rec.ID)
	if _, ok := m.rows[k]; ok {
		return fmt.Errorf("insert %s/%s: %w", rec.EntityType, rec.ID, common.ErrorAlreadyExists)
	}
	m.rows[k] = clone(rec)
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, rec *models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(rec.TenantID, rec.EntityType, rec.ID)
	cur, ok := m.rows[k]
	if !ok {
		return common.ErrorNotFound
	}
	next := clone(rec)
	next.CreatedAt = cur.CreatedAt
	m.rows[k] = next
	return nil
}

func (m *MemoryRepository) Upsert(_ context.Context, rec *models.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(rec.TenantID, rec.EntityType, rec.ID)
	cur, exists := m.rows[k]
	if exists {
		rec.CreatedAt = cur.CreatedAt
	}
	m.rows[k] = clone(rec)
	return !exists, nil
}

func (m *MemoryRepository) Delete(_ context.Context, tenantID, entityType, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(tenantID, entityType, id)
	if _, ok := m.rows[k]; !ok {
		return false, nil
	}
	delete(m.rows, k)
	return true, nil
}

func (m *MemoryRepository) List(_ context.Context, tenantID, entityType string) ([]*models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Record
	for _, r := range m.rows {
		if r.TenantID == tenantID && r.EntityType == entityType {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
