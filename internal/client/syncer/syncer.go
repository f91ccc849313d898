// Package syncer reconciles the client's local store with the server.
//
// A cycle (RunCycle) drains the pending action queue through batch apply,
// pulls the changes since the stored watermark and folds them into the local
// cache, advancing the watermark in the same local transaction. Writes made
// through Create, Update and Delete go to the server directly and fall back
// to an optimistic local copy plus a queued action when the server cannot be
// reached.
package syncer

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/client/client"
	"github.com/farmdeck/farmsync/internal/client/store"
	"github.com/farmdeck/farmsync/internal/logging"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrCycleInProgress is returned by RunCycle when another cycle holds the
// in-process guard or the cross-process lock file.
var ErrCycleInProgress = errors.New("sync cycle already in progress")

// State is the phase of the running cycle.
type State int32

const (
	StateIdle State = iota
	StateDraining
	StatePulling
	StateFolding
)

func (s State) String() string {
	switch s {
	case StateDraining:
		return "DRAINING_QUEUE"
	case StatePulling:
		return "PULLING"
	case StateFolding:
		return "FOLDING"
	default:
		return "IDLE"
	}
}

// ConflictError reports a queued action the server refused. The action stays
// at the head of the queue until it is removed explicitly.
type ConflictError struct {
	ActionID string
	Entity   string
	Op       api.Operation
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Reason)
}

// CycleResult summarises one RunCycle.
type CycleResult struct {
	// Skipped is set when the server was unreachable and nothing was done.
	Skipped bool
	// Applied is the number of queued actions confirmed by the server.
	Applied int
	// Conflict is the action that stopped the drain, if any.
	Conflict   *ConflictError
	Changes    int
	Tombstones int
	Watermark  time.Time
}

type Syncer struct {
	store      *store.Store
	api        client.Client
	prober     client.Prober
	classifier client.Classifier
	logger     logging.Logger
	now        func() time.Time
	newID      func() string
	lock       *flock.Flock
	entities   map[string]struct{}

	onlineCheckInterval time.Duration
	syncInterval        time.Duration
	onStatus            func(online bool)

	running atomic.Bool
	state   atomic.Int32
}

type Option func(*Syncer)

// WithProber replaces the connectivity check; by default the API client's
// own Ping is used.
func WithProber(p client.Prober) Option {
	return func(s *Syncer) { s.prober = p }
}

func WithClassifier(c client.Classifier) Option {
	return func(s *Syncer) { s.classifier = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// WithLockFile guards cycles across processes with an OS lock on path.
func WithLockFile(path string) Option {
	return func(s *Syncer) { s.lock = flock.New(path) }
}

// WithEntities sets the entity types folded into the cache; others are
// skipped.
func WithEntities(names ...string) Option {
	return func(s *Syncer) {
		s.entities = make(map[string]struct{}, len(names))
		for _, n := range names {
			s.entities[n] = struct{}{}
		}
	}
}

// WithIntervals configures Watch.
func WithIntervals(onlineCheck, sync time.Duration) Option {
	return func(s *Syncer) {
		s.onlineCheckInterval = onlineCheck
		s.syncInterval = sync
	}
}

// WithStatusHook is called by Watch whenever connectivity changes.
func WithStatusHook(fn func(online bool)) Option {
	return func(s *Syncer) { s.onStatus = fn }
}

func New(st *store.Store, c client.Client, l logging.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		store:               st,
		api:                 c,
		prober:              c,
		classifier:          client.DefaultClassifier{},
		logger:              l.With("module", "syncer"),
		now:                 time.Now,
		newID:               uuid.NewString,
		onlineCheckInterval: 3 * time.Second,
		syncInterval:        30 * time.Second,
	}
	WithEntities(api.Entities()...)(s)
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the phase of the cycle in progress, or StateIdle.
func (s *Syncer) State() State {
	return State(s.state.Load())
}

func (s *Syncer) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Syncer) known(entity string) bool {
	_, ok := s.entities[entity]
	return ok
}
