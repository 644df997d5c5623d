// Package repomanager vends repositories bound to a storage handle, so
// services can run the same code against a connection or a transaction.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/tgotp/internal/dbx"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/exporttokens"
	"github.com/dmitrijs2005/tgotp/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users(db dbx.DBTX) users.Repository
	Accounts(db dbx.DBTX) accounts.Repository
	ExportTokens(db dbx.DBTX) exporttokens.Repository
}
