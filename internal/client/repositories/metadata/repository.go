// Package metadata stores small client settings, among them the pull
// watermark.
package metadata

import (
	"context"
	"time"
)

// Entry is one stored setting and the local time it was last written.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

type Repository interface {
	// Get returns common.ErrorNotFound when the key is absent.
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, e *Entry) error
	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)
}
