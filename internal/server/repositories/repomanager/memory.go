package repomanager

import (
	"context"
	"database/sql"

	"github.com/farmdeck/farmsync/internal/dbx"
	"github.com/farmdeck/farmsync/internal/server/repositories/journal"
	"github.com/farmdeck/farmsync/internal/server/repositories/records"
)

// InMemoryRepositoryManager hands out the same in-process repositories for
// every DBTX. Nothing is persisted and rollbacks do not undo writes, so it
// only backs tests that exercise services without PostgreSQL.
type InMemoryRepositoryManager struct {
	records *records.MemoryRepository
	journal *journal.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		records: records.NewMemoryRepository(),
		journal: journal.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Records(dbx.DBTX) records.Repository {
	return m.records
}

func (m *InMemoryRepositoryManager) Journal(dbx.DBTX) journal.Repository {
	return m.journal
}
