package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/farmdeck/farmsync/internal/common"
	"github.com/farmdeck/farmsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (*Entry, error) {
	var value, updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM metadata WHERE key = ?`, key,
	).Scan(&value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	at, err := time.Parse(common.TimeFormat, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp on setting %s: %w", key, err)
	}
	return &Entry{Key: key, Value: value, UpdatedAt: at}, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, e *Entry) error {
	if e.Key == "" {
		return fmt.Errorf("%w: setting key is required", common.ErrValidation)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, e.Key, e.Value, e.UpdatedAt.UTC().Format(common.TimeFormat))
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", e.Key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
