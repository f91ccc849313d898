package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/client/client"
	"github.com/farmdeck/farmsync/internal/client/models"
	"github.com/farmdeck/farmsync/internal/client/store"
	"github.com/farmdeck/farmsync/internal/logging"
	"github.com/stretchr/testify/require"
)

// fakeAPI embeds client.Client so only the methods a test sets are used.
type fakeAPI struct {
	client.Client

	mu      sync.Mutex
	pingErr error
	batch   func(actions []api.Action) (*api.BatchResponse, error)
	pull    func(since time.Time) (*api.PullResponse, error)
	create  func(entity string, data api.Record) (api.Record, error)
	update  func(entity, id string, patch api.Record) (api.Record, error)
	del     func(entity, id string) error

	batches []api.Action
	pulls   []time.Time
}

func (f *fakeAPI) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeAPI) setPingErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

func (f *fakeAPI) Batch(_ context.Context, actions []api.Action) (*api.BatchResponse, error) {
	f.mu.Lock()
	f.batches = append(f.batches, actions...)
	fn := f.batch
	f.mu.Unlock()
	if fn == nil {
		return applyAll(actions), nil
	}
	return fn(actions)
}

func (f *fakeAPI) Pull(_ context.Context, since time.Time) (*api.PullResponse, error) {
	f.mu.Lock()
	f.pulls = append(f.pulls, since)
	fn := f.pull
	f.mu.Unlock()
	if fn == nil {
		return &api.PullResponse{ServerTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}, nil
	}
	return fn(since)
}

func (f *fakeAPI) Create(_ context.Context, entity string, data api.Record) (api.Record, error) {
	return f.create(entity, data)
}

func (f *fakeAPI) Update(_ context.Context, entity, id string, patch api.Record) (api.Record, error) {
	return f.update(entity, id, patch)
}

func (f *fakeAPI) Delete(_ context.Context, entity, id string) error {
	return f.del(entity, id)
}

func (f *fakeAPI) pullCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pulls)
}

func applyAll(actions []api.Action) *api.BatchResponse {
	resp := &api.BatchResponse{Applied: []api.AppliedAction{}, Conflicts: []api.Conflict{}}
	for _, a := range actions {
		resp.Applied = append(resp.Applied, api.AppliedAction{
			ClientID: a.ClientID, Status: api.StatusApplied, Entity: a.Entity, Op: a.Op, EntityID: a.Data.ID(),
		})
	}
	return resp
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

var fixedNow = time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC)

func newTestSyncer(t *testing.T, f *fakeAPI, opts ...Option) (*Syncer, *store.Store) {
	t.Helper()
	st := openStore(t)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(st, f, logging.Nop{}, opts...), st
}

func enqueue(t *testing.T, st *store.Store, id, entity string, op api.Operation, payload api.Record) {
	t.Helper()
	require.NoError(t, st.Queue.Enqueue(context.Background(), &models.PendingAction{
		ID: id, Entity: entity, Op: op, Payload: payload, EnqueuedAt: fixedNow,
	}))
}

func queuedIDs(t *testing.T, st *store.Store) []string {
	t.Helper()
	list, err := st.Queue.List(context.Background())
	require.NoError(t, err)
	out := []string{}
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}
