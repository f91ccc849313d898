package services

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/farmdeck/farmsync/internal/logging"
	"github.com/farmdeck/farmsync/internal/server/entities"
	"github.com/farmdeck/farmsync/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newTxDB returns a handle that only provides transactions; the in-memory
// repositories ignore it.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{now: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

type memEnv struct {
	db       *sql.DB
	rm       *repomanager.InMemoryRepositoryManager
	registry *entities.Registry
	clock    *stepClock
	sync     *SyncService
	records  *RecordsService
}

func newMemEnv(t *testing.T) *memEnv {
	t.Helper()
	db := newTxDB(t)
	rm := repomanager.NewInMemoryRepositoryManager()
	reg := entities.NewDefaultRegistry(rm)
	clock := newStepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	opts := []Option{WithClock(clock.Now), WithReadTxOptions(nil), WithPullLag(0)}
	return &memEnv{
		db:       db,
		rm:       rm,
		registry: reg,
		clock:    clock,
		sync:     NewSyncService(db, rm, reg, logging.Nop{}, opts...),
		records:  NewRecordsService(db, reg, logging.Nop{}, opts...),
	}
}
