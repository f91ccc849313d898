package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/client/models"
	"github.com/farmdeck/farmsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE cache_records (
  entity_type TEXT    NOT NULL,
  id          TEXT    NOT NULL,
  data        TEXT    NOT NULL,
  updated_at  TEXT    NOT NULL,
  provisional INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (entity_type, id)
);`)
	require.NoError(t, err)
	return db
}

func paddock(id, name string, provisional bool) *models.CacheRecord {
	return &models.CacheRecord{
		Entity:      "paddocks",
		ID:          id,
		Data:        api.Record{"id": id, "name": name, "area_ha": 12.5},
		UpdatedAt:   time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC),
		Provisional: provisional,
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	in := paddock("p1", "North", true)
	require.NoError(t, r.Put(ctx, in))

	got, err := r.Get(ctx, "paddocks", "p1")
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestPut_ReplacesAndClearsProvisional(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, paddock("p1", "North", true)))
	require.NoError(t, r.Put(ctx, paddock("p1", "North Hill", false)))

	got, err := r.Get(ctx, "paddocks", "p1")
	require.NoError(t, err)
	assert.Equal(t, "North Hill", got.Data["name"])
	assert.False(t, got.Provisional)

	n, err := r.CountProvisional(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGet_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), "paddocks", "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete_Idempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, paddock("p1", "North", false)))
	require.NoError(t, r.Delete(ctx, "paddocks", "p1"))
	require.NoError(t, r.Delete(ctx, "paddocks", "p1"))

	_, err := r.Get(ctx, "paddocks", "p1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_ScopedByEntityAndOrdered(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, paddock("p2", "South", false)))
	require.NoError(t, r.Put(ctx, paddock("p1", "North", true)))
	require.NoError(t, r.Put(ctx, &models.CacheRecord{
		Entity: "mobs", ID: "m1", Data: api.Record{"id": "m1"}, UpdatedAt: time.Now(),
	}))

	list, err := r.List(ctx, "paddocks")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, "p2", list[1].ID)

	n, err := r.CountProvisional(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGet_CorruptRow(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO cache_records VALUES ('paddocks', 'bad', '{', '2025-01-01T00:00:00Z', 0)`)
	require.NoError(t, err)

	_, err = r.Get(ctx, "paddocks", "bad")
	assert.ErrorContains(t, err, "corrupt cached data")
}
