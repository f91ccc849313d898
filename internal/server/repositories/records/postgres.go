package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/farmdeck/farmsync/internal/common"
	"github.com/farmdeck/farmsync/internal/dbx"
	"github.com/farmdeck/farmsync/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, tenantID, entityType, id string) (*models.Record, error) {
	query := `
		SELECT data, created_at, updated_at
		FROM records
		WHERE tenant_id = $1 AND entity_type = $2 AND id = $3
	`
	rec := &models.Record{TenantID: tenantID, EntityType: entityType, ID: id}
	var data []byte
	if err := r.db.QueryRowContext(ctx, query, tenantID, entityType, id).Scan(&data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return nil, fmt.Errorf("decode record data: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, tenantID, entityType, id string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM records
			WHERE tenant_id = $1 AND entity_type = $2 AND id = $3
		)
	`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, tenantID, entityType, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, rec *models.Record) error {
	data, err := encodeData(rec.Data)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO records (tenant_id, entity_type, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query, rec.TenantID, rec.EntityType, rec.ID, data, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, rec *models.Record) error {
	data, err := encodeData(rec.Data)
	if err != nil {
		return err
	}
	query := `
		UPDATE records
		SET data = $4, updated_at = $5
		WHERE tenant_id = $1 AND entity_type = $2 AND id = $3
	`
	res, err := r.db.ExecContext(ctx, query, rec.TenantID, rec.EntityType, rec.ID, data, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.Record) (bool, error) {
	data, err := encodeData(rec.Data)
	if err != nil {
		return false, err
	}
	// xmax = 0 only for a freshly inserted tuple.
	query := `
		INSERT INTO records (tenant_id, entity_type, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, entity_type, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		RETURNING created_at, (xmax = 0) AS inserted
	`
	var inserted bool
	if err := r.db.QueryRowContext(ctx, query, rec.TenantID, rec.EntityType, rec.ID, data, rec.CreatedAt, rec.UpdatedAt).
		Scan(&rec.CreatedAt, &inserted); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return inserted, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, tenantID, entityType, id string) (bool, error) {
	query := `
		DELETE FROM records
		WHERE tenant_id = $1 AND entity_type = $2 AND id = $3
	`
	res, err := r.db.ExecContext(ctx, query, tenantID, entityType, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) List(ctx context.Context, tenantID, entityType string) ([]*models.Record, error) {
	query := `
		SELECT id, data, created_at, updated_at
		FROM records
		WHERE tenant_id = $1 AND entity_type = $2
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec := &models.Record{TenantID: tenantID, EntityType: entityType}
		var data []byte
		if err := rows.Scan(&rec.ID, &data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &rec.Data); err != nil {
			return nil, fmt.Errorf("decode record data: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// encodeData serializes the entity fields for the jsonb column. A string is
// passed so that pgx sends it as text.
func encodeData(data map[string]any) (string, error) {
	if data == nil {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode record data: %w", err)
	}
	return string(b), nil
}
