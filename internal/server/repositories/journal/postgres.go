package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
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

func (r *PostgresRepository) RecordChange(ctx context.Context, e *models.ChangeLogEntry) (int64, error) {
	query := `
		INSERT INTO change_log (tenant_id, entity_type, entity_id, operation, payload, changed_at, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		e.TenantID, e.EntityType, e.EntityID, string(e.Operation), string(e.Payload), e.ChangedAt, e.ActorID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record change: %w", err)
	}
	e.ID = id
	return id, nil
}

func (r *PostgresRepository) RecordTombstone(ctx context.Context, t *models.Tombstone) (int64, error) {
	query := `
		INSERT INTO tombstones (tenant_id, entity_type, entity_id, deleted_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, t.TenantID, t.EntityType, t.EntityID, t.DeletedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("record tombstone: %w", err)
	}
	t.ID = id
	return id, nil
}

func (r *PostgresRepository) SelectChangesSince(ctx context.Context, tenantID string, since time.Time) ([]*models.ChangeLogEntry, error) {
	query := `
		SELECT id, entity_type, entity_id, operation, payload, changed_at, actor_id
		FROM change_log
		WHERE tenant_id = $1 AND changed_at > $2
		ORDER BY changed_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select changes: %w", err)
	}
	defer rows.Close()

	var result []*models.ChangeLogEntry
	for rows.Next() {
		e := &models.ChangeLogEntry{TenantID: tenantID}
		var op string
		var payload []byte
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &op, &payload, &e.ChangedAt, &e.ActorID); err != nil {
			return nil, err
		}
		e.Operation = api.Operation(op)
		e.Payload = payload
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SelectTombstonesSince(ctx context.Context, tenantID string, since time.Time) ([]*models.Tombstone, error) {
	query := `
		SELECT id, entity_type, entity_id, deleted_at
		FROM tombstones
		WHERE tenant_id = $1 AND deleted_at > $2
		ORDER BY deleted_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select tombstones: %w", err)
	}
	defer rows.Close()

	var result []*models.Tombstone
	for rows.Next() {
		t := &models.Tombstone{TenantID: tenantID}
		if err := rows.Scan(&t.ID, &t.EntityType, &t.EntityID, &t.DeletedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
