package repomanager

import (
	"context"

	"github.com/dmitrijs2005/tgotp/internal/dbx"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/exporttokens"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/users"
)

// MemoryRepositoryManager returns the same in-memory repositories whatever
// handle it is given. Pair it with dbx.LockTransactor.
type MemoryRepositoryManager struct {
	users    *users.MemoryRepository
	accounts *accounts.MemoryRepository
	tokens   *exporttokens.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:    users.NewMemoryRepository(),
		accounts: accounts.NewMemoryRepository(),
		tokens:   exporttokens.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *MemoryRepositoryManager) Accounts(dbx.DBTX) accounts.Repository { return m.accounts }

func (m *MemoryRepositoryManager) ExportTokens(dbx.DBTX) exporttokens.Repository { return m.tokens }
