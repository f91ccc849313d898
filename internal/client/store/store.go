// Package store opens the client's local SQLite database and vends the
// repositories that live in it, either on the database or on a transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/farmdeck/farmsync/internal/client/migrations"
	"github.com/farmdeck/farmsync/internal/client/repositories/cache"
	"github.com/farmdeck/farmsync/internal/client/repositories/metadata"
	"github.com/farmdeck/farmsync/internal/client/repositories/queue"
	"github.com/farmdeck/farmsync/internal/dbx"
	"github.com/farmdeck/farmsync/internal/filex"
	"github.com/farmdeck/farmsync/internal/logging"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

var gooseUpContext = goose.UpContext

// Repos groups the repositories bound to one handle.
type Repos struct {
	Cache     cache.Repository
	Queue     queue.Repository
	Watermark *metadata.Watermark
}

func newRepos(db dbx.DBTX, now func() time.Time) *Repos {
	return &Repos{
		Cache:     cache.NewSQLiteRepository(db),
		Queue:     queue.NewSQLiteRepository(db),
		Watermark: metadata.NewWatermark(metadata.NewSQLiteRepository(db), now),
	}
}

type Store struct {
	db  *sql.DB
	now func() time.Time
	*Repos
}

type options struct {
	logger logging.Logger
	now    func() time.Time
}

type Option func(*options)

// WithLogger receives migration progress, which otherwise goes nowhere.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the clock used to stamp settings.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Open opens (creating if needed) the database at path and migrates it.
// The pool is limited to one connection: SQLite has a single writer, and
// ":memory:" databases are per connection.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	o := options{logger: logging.Nop{}, now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}

	if path != ":memory:" {
		if _, err := filex.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("failed to prepare local database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db, o.logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: o.now, Repos: newRepos(db, o.now)}, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// RunMigrations applies the embedded migrations. goose's output is sent to l
// at debug level so it never reaches the terminal.
func RunMigrations(ctx context.Context, db *sql.DB, l logging.Logger) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(gooseLogger{ctx: ctx, l: l})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to migrate local database: %w", err)
	}
	return nil
}

// WithTx runs fn with repositories bound to one transaction. Everything fn
// writes is committed together or not at all.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, r *Repos) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, newRepos(tx, s.now))
	})
}

type gooseLogger struct {
	ctx context.Context
	l   logging.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.l.Debug(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)), "module", "migrations")
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	g.l.Error(g.ctx, msg, "module", "migrations")
	panic(msg)
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}
