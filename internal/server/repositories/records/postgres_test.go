package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/farmdeck/farmsync/internal/common"
	"github.com/farmdeck/farmsync/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

var (
	qGet    = `(?s)^\s*SELECT\s+data,\s*created_at,\s*updated_at\s+FROM\s+records\s+WHERE\s+tenant_id\s*=\s*\$1\s+AND\s+entity_type\s*=\s*\$2\s+AND\s+id\s*=\s*\$3\s*$`
	qExists = `(?s)SELECT\s+EXISTS\s*\(.*FROM\s+records.*\)`
	qInsert = `(?s)^\s*INSERT\s+INTO\s+records\s*\(tenant_id,\s*entity_type,\s*id,\s*data,\s*created_at,\s*updated_at\)\s+VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*$`
	qUpdate = `(?s)^\s*UPDATE\s+records\s+SET\s+data\s*=\s*\$4,\s*updated_at\s*=\s*\$5\s+WHERE.*$`
	qUpsert = `(?s)INSERT\s+INTO\s+records.*ON\s+CONFLICT\s+\(tenant_id,\s*entity_type,\s*id\)\s+DO\s+UPDATE.*RETURNING\s+created_at`
	qDelete = `(?s)^\s*DELETE\s+FROM\s+records\s+WHERE\s+tenant_id\s*=\s*\$1\s+AND\s+entity_type\s*=\s*\$2\s+AND\s+id\s*=\s*\$3\s*$`
	qList   = `(?s)SELECT\s+id,\s*data,\s*created_at,\s*updated_at\s+FROM\s+records.*ORDER\s+BY\s+created_at,\s*id`
)

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(qGet).
		WithArgs("t1", "paddocks", "p1").
		WillReturnRows(sqlmock.NewRows([]string{"data", "created_at", "updated_at"}).
			AddRow([]byte(`{"name":"North"}`), created, created))

	rec, err := repo.Get(context.Background(), "t1", "paddocks", "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", rec.ID)
	assert.Equal(t, "t1", rec.TenantID)
	assert.Equal(t, "North", rec.Data["name"])
	assert.True(t, rec.CreatedAt.Equal(created))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qGet).WithArgs("t1", "paddocks", "nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "t1", "paddocks", "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGet_BadJSON(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(qGet).
		WillReturnRows(sqlmock.NewRows([]string{"data", "created_at", "updated_at"}).AddRow([]byte(`{`), now, now))

	_, err := repo.Get(context.Background(), "t1", "paddocks", "p1")
	assert.ErrorContains(t, err, "decode record data")
}

func TestExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qExists).WithArgs("t1", "mobs", "m1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(qExists).WithArgs("t1", "mobs", "m2").
		WillReturnError(errors.New("db down"))

	ok, err := repo.Exists(context.Background(), "t1", "mobs", "m1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.Exists(context.Background(), "t1", "mobs", "m2")
	assert.ErrorContains(t, err, "db down")
}

func TestInsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(qInsert).
		WithArgs("t1", "paddocks", "p1", `{"name":"North"}`, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &models.Record{
		TenantID: "t1", EntityType: "paddocks", ID: "p1",
		Data: map[string]any{"name": "North"}, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_WrapsDriverError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	boom := errors.New("duplicate key")
	mock.ExpectExec(qInsert).WillReturnError(boom)

	err := repo.Insert(context.Background(), &models.Record{TenantID: "t1", EntityType: "paddocks", ID: "p1"})
	assert.ErrorIs(t, err, boom)
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(qUpdate).
		WithArgs("t1", "paddocks", "p1", `{"name":"South"}`, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qUpdate).
		WithArgs("t1", "paddocks", "p2", `{}`, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Record{
		TenantID: "t1", EntityType: "paddocks", ID: "p1", Data: map[string]any{"name": "South"}, UpdatedAt: now,
	})
	require.NoError(t, err)

	err = repo.Update(context.Background(), &models.Record{
		TenantID: "t1", EntityType: "paddocks", ID: "p2", UpdatedAt: now,
	})
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	original := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(qUpsert).
		WithArgs("t1", "paddocks", "p1", `{"name":"East"}`, now, now).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "inserted"}).AddRow(original, false))

	rec := &models.Record{
		TenantID: "t1", EntityType: "paddocks", ID: "p1",
		Data: map[string]any{"name": "East"}, CreatedAt: now, UpdatedAt: now,
	}
	inserted, err := repo.Upsert(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.True(t, rec.CreatedAt.Equal(original))
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qDelete).WithArgs("t1", "paddocks", "p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qDelete).WithArgs("t1", "paddocks", "p1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(qDelete).WithArgs("t1", "paddocks", "p1").WillReturnError(errors.New("db err"))

	ok, err := repo.Delete(context.Background(), "t1", "paddocks", "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(context.Background(), "t1", "paddocks", "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Delete(context.Background(), "t1", "paddocks", "p1")
	assert.ErrorContains(t, err, "db error")
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(qList).
		WithArgs("t1", "mobs").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "created_at", "updated_at"}).
			AddRow("m1", []byte(`{"name":"Ewes"}`), now, now).
			AddRow("m2", []byte(`{"name":"Rams"}`), now, now))

	got, err := repo.List(context.Background(), "t1", "mobs")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "Rams", got[1].Data["name"])
	assert.Equal(t, "mobs", got[1].EntityType)
}

func TestList_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qList).WillReturnError(errors.New("boom"))

	_, err := repo.List(context.Background(), "t1", "mobs")
	assert.ErrorContains(t, err, "failed to select records")
}
