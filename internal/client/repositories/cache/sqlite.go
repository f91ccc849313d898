package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/client/models"
	"github.com/farmdeck/farmsync/internal/common"
	"github.com/farmdeck/farmsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *models.CacheRecord) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", rec.Entity, rec.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cache_records (entity_type, id, data, updated_at, provisional)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at,
			provisional = excluded.provisional
	`, rec.Entity, rec.ID, string(data), rec.UpdatedAt.UTC().Format(common.TimeFormat), rec.Provisional)
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", rec.Entity, rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, entity, id string) (*models.CacheRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT entity_type, id, data, updated_at, provisional
		FROM cache_records WHERE entity_type = ? AND id = ?
	`, entity, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", entity, id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, entity, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cache_records WHERE entity_type = ? AND id = ?`, entity, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", entity, id, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, entity string) ([]*models.CacheRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT entity_type, id, data, updated_at, provisional
		FROM cache_records WHERE entity_type = ? ORDER BY id
	`, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entity, err)
	}
	defer rows.Close()

	var result []*models.CacheRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", entity, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", entity, err)
	}
	return result, nil
}

func (r *SQLiteRepository) CountProvisional(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_records WHERE provisional = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count provisional records: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.CacheRecord, error) {
	var (
		rec       models.CacheRecord
		data      string
		updatedAt string
	)
	if err := s.Scan(&rec.Entity, &rec.ID, &data, &updatedAt, &rec.Provisional); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return nil, fmt.Errorf("corrupt cached data: %w", err)
	}
	if rec.Data == nil {
		rec.Data = api.Record{}
	}
	t, err := time.Parse(common.TimeFormat, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt cached timestamp: %w", err)
	}
	rec.UpdatedAt = t
	return &rec, nil
}
