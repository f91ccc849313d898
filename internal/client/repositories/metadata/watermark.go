package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farmdeck/farmsync/internal/common"
)

// WatermarkKey holds the serverTime of the last folded pull.
const WatermarkKey = "last_pull_at"

// Watermark reads and advances the pull watermark kept in a metadata
// Repository. Bind the repository to the fold transaction so the watermark
// moves together with the folded rows.
type Watermark struct {
	repo Repository
	now  func() time.Time
}

func NewWatermark(repo Repository, now func() time.Time) *Watermark {
	if now == nil {
		now = time.Now
	}
	return &Watermark{repo: repo, now: now}
}

// Get returns the stored watermark, or the zero time before the first pull.
func (w *Watermark) Get(ctx context.Context) (time.Time, error) {
	at, _, err := w.Status(ctx)
	return at, err
}

// Status returns the watermark together with the local time it last moved.
// Both are zero before the first pull.
func (w *Watermark) Status(ctx context.Context) (since, movedAt time.Time, err error) {
	e, err := w.repo.Get(ctx, WatermarkKey)
	if errors.Is(err, common.ErrorNotFound) {
		return time.Time{}, time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	since, err = time.Parse(common.TimeFormat, e.Value)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid watermark %q: %w", e.Value, err)
	}
	return since, e.UpdatedAt, nil
}

// Advance stores t unless it is older than or equal to the current value.
// It reports whether the watermark moved.
func (w *Watermark) Advance(ctx context.Context, t time.Time) (bool, error) {
	current, err := w.Get(ctx)
	if err != nil {
		return false, err
	}
	if !t.After(current) {
		return false, nil
	}
	err = w.repo.Set(ctx, &Entry{
		Key:       WatermarkKey,
		Value:     t.UTC().Format(common.TimeFormat),
		UpdatedAt: w.now(),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Reset forgets the watermark so the next pull starts from the beginning.
// It reports whether there was one.
func (w *Watermark) Reset(ctx context.Context) (bool, error) {
	return w.repo.Delete(ctx, WatermarkKey)
}
