// Package services contains server-side business logic: applying batches of
// queued client actions, serving incremental pulls from the change journal,
// and ordinary record CRUD. Every mutation runs in its own transaction
// through an entities.Handler so the journal row commits with the record.
package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/farmdeck/farmsync/internal/common"
	"github.com/farmdeck/farmsync/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
)

// Clock returns the server time used to stamp records and journal rows.
type Clock func() time.Time

// pgUniqueViolation is the SQLSTATE raised when a primary key already exists.
const pgUniqueViolation = "23505"

// journalPrecision is the resolution of TIMESTAMPTZ columns. Times handed
// out by the services are truncated to it so that what a client sees
// matches what is stored.
const journalPrecision = time.Microsecond

type options struct {
	clock   Clock
	readTx  *sql.TxOptions
	pullLag time.Duration
}

// Option customizes a service.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithReadTxOptions sets the options of the read transaction used by Pull.
// nil means the driver default, for databases without snapshot isolation.
func WithReadTxOptions(opts *sql.TxOptions) Option {
	return func(o *options) { o.readTx = opts }
}

// WithPullLag moves the returned serverTime back by d so that rows stamped
// just before a pull but committed after its snapshot are re-delivered by the
// next pull. Values under one microsecond are raised to it.
func WithPullLag(d time.Duration) Option {
	return func(o *options) { o.pullLag = d }
}

func buildOptions(opts []Option) options {
	o := options{
		clock:   time.Now,
		readTx:  dbx.SnapshotRead,
		pullLag: time.Second,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.pullLag < journalPrecision {
		o.pullLag = journalPrecision
	}
	return o
}

func (o options) now() time.Time {
	return o.clock().UTC().Truncate(journalPrecision)
}

// isAlreadyExists reports a duplicate primary key, either from PostgreSQL
// or from a repository that maps it to common.ErrorAlreadyExists.
func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return errors.Is(err, common.ErrorAlreadyExists)
}
