package repomanager

import (
	"context"
	"database/sql"

	"github.com/farmdeck/farmsync/internal/dbx"
	"github.com/farmdeck/farmsync/internal/server/repositories/journal"
	"github.com/farmdeck/farmsync/internal/server/repositories/records"
)

// RepositoryManager vends repositories bound to a DBTX, which is either the
// pool or a transaction opened by the caller.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
	Journal(db dbx.DBTX) journal.Repository
}
