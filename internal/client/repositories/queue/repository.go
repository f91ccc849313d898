// Package queue is the durable FIFO of mutations made while offline.
package queue

import (
	"context"

	"github.com/farmdeck/farmsync/internal/client/models"
)

// Handler is called by Drain for each queued action. Returning nil confirms
// the action and removes it from the queue.
type Handler func(ctx context.Context, action *models.PendingAction) error

type Repository interface {
	// Enqueue appends the action. An id that is already queued is ignored.
	Enqueue(ctx context.Context, action *models.PendingAction) error
	// Drain hands actions to h oldest first. It stops at the first error,
	// records it on that action and returns it together with the number of
	// actions removed before it. A failure caused by ctx ending is not
	// recorded.
	Drain(ctx context.Context, h Handler) (int, error)
	List(ctx context.Context) ([]*models.PendingAction, error)
	Len(ctx context.Context) (int, error)
	// Remove drops an action by id and reports whether it was queued.
	Remove(ctx context.Context, id string) (bool, error)
}
