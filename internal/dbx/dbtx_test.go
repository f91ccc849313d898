package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openPaddocks(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE paddocks (id TEXT PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func paddockCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM paddocks`).Scan(&n))
	return n
}

func insertPaddock(ctx context.Context, tx DBTX, id, name string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO paddocks (id, name) VALUES (?, ?)`, id, name)
	return err
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db := openPaddocks(t)
		err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
			if err := insertPaddock(ctx, tx, "p1", "North Flat"); err != nil {
				return err
			}
			return insertPaddock(ctx, tx, "p2", "Creek")
		})
		require.NoError(t, err)
		assert.Equal(t, 2, paddockCount(t, db))
	})

	t.Run("error rolls back every statement", func(t *testing.T) {
		db := openPaddocks(t)
		err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insertPaddock(ctx, tx, "p1", "North Flat"))
			return insertPaddock(ctx, tx, "p1", "duplicate")
		})
		require.Error(t, err)
		assert.Zero(t, paddockCount(t, db))
	})

	t.Run("panic rolls back and propagates", func(t *testing.T) {
		db := openPaddocks(t)
		assert.PanicsWithValue(t, "gate left open", func() {
			_ = WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
				require.NoError(t, insertPaddock(ctx, tx, "p1", "North Flat"))
				panic("gate left open")
			})
		})
		assert.Zero(t, paddockCount(t, db))
	})

	t.Run("begin on closed db", func(t *testing.T) {
		db := openPaddocks(t)
		require.NoError(t, db.Close())
		called := false
		err := WithTx(ctx, db, nil, func(context.Context, DBTX) error {
			called = true
			return nil
		})
		require.Error(t, err)
		assert.False(t, called)
	})
}

func TestWithTx_CommitError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO paddocks`).WithArgs("p1", "North Flat").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	err = WithTx(context.Background(), db, SnapshotRead, func(ctx context.Context, tx DBTX) error {
		return insertPaddock(ctx, tx, "p1", "North Flat")
	})
	require.EqualError(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxValue(t *testing.T) {
	ctx := context.Background()

	t.Run("returns value on commit", func(t *testing.T) {
		db := openPaddocks(t)
		name, err := WithTxValue(ctx, db, nil, func(ctx context.Context, tx DBTX) (string, error) {
			if err := insertPaddock(ctx, tx, "p1", "North Flat"); err != nil {
				return "", err
			}
			var n string
			err := tx.QueryRowContext(ctx, `SELECT name FROM paddocks WHERE id = ?`, "p1").Scan(&n)
			return n, err
		})
		require.NoError(t, err)
		assert.Equal(t, "North Flat", name)
		assert.Equal(t, 1, paddockCount(t, db))
	})

	t.Run("zero value on failed commit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("disk full"))

		n, err := WithTxValue(ctx, db, nil, func(context.Context, DBTX) (int, error) {
			return 42, nil
		})
		require.EqualError(t, err, "disk full")
		assert.Zero(t, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("callback error", func(t *testing.T) {
		db := openPaddocks(t)
		boom := errors.New("boom")
		n, err := WithTxValue(ctx, db, nil, func(context.Context, DBTX) (int, error) {
			return 7, boom
		})
		require.ErrorIs(t, err, boom)
		assert.Zero(t, n)
	})
}
