package queue

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

const selectColumns = `seq, id, entity_type, operation, payload, enqueued_at, attempts, last_error`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, a *models.PendingAction) error {
	if a.ID == "" {
		return fmt.Errorf("%w: action id is required", common.ErrValidation)
	}
	if !a.Op.Valid() {
		return fmt.Errorf("%w: %q", common.ErrUnknownOp, a.Op)
	}
	if a.Payload.ID() == "" {
		return fmt.Errorf("%w: payload id is required", common.ErrValidation)
	}

	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode action %s: %w", a.ID, err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_actions (id, entity_type, operation, payload, enqueued_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, a.ID, a.Entity, string(a.Op), string(payload), a.EnqueuedAt.UTC().Format(common.TimeFormat))
	if err != nil {
		return fmt.Errorf("failed to enqueue action %s: %w", a.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		if seq, err := res.LastInsertId(); err == nil {
			a.Seq = seq
		}
	}
	return nil
}

func (r *SQLiteRepository) Drain(ctx context.Context, h Handler) (int, error) {
	drained := 0
	for {
		if err := ctx.Err(); err != nil {
			return drained, err
		}

		head, err := r.head(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return drained, nil
		}
		if err != nil {
			return drained, err
		}

		if err := h(ctx, head); err != nil {
			if ctx.Err() != nil {
				return drained, err
			}
			if markErr := r.markFailed(ctx, head.Seq, err); markErr != nil {
				return drained, errors.Join(err, markErr)
			}
			return drained, err
		}

		if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE seq = ?`, head.Seq); err != nil {
			return drained, fmt.Errorf("failed to remove action %s: %w", head.ID, err)
		}
		drained++
	}
}

func (r *SQLiteRepository) head(ctx context.Context) (*models.PendingAction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM pending_actions ORDER BY seq LIMIT 1`)
	a, err := scanAction(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read queue head: %w", err)
	}
	return a, err
}

func (r *SQLiteRepository) markFailed(ctx context.Context, seq int64, cause error) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pending_actions SET attempts = attempts + 1, last_error = ? WHERE seq = ?
	`, cause.Error(), seq)
	if err != nil {
		return fmt.Errorf("failed to record drain failure: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.PendingAction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM pending_actions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	defer rows.Close()

	var result []*models.PendingAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queued action: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Len(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to remove action %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAction(s scanner) (*models.PendingAction, error) {
	var (
		a          models.PendingAction
		op         string
		payload    string
		enqueuedAt string
	)
	if err := s.Scan(&a.Seq, &a.ID, &a.Entity, &op, &payload, &enqueuedAt, &a.Attempts, &a.LastError); err != nil {
		return nil, err
	}
	a.Op = api.Operation(op)
	if err := json.Unmarshal([]byte(payload), &a.Payload); err != nil {
		return nil, fmt.Errorf("corrupt payload of action %s: %w", a.ID, err)
	}
	t, err := time.Parse(common.TimeFormat, enqueuedAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp of action %s: %w", a.ID, err)
	}
	a.EnqueuedAt = t
	return &a, nil
}
