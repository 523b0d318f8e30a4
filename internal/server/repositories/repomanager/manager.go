package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docverify/internal/dbx"
	"github.com/dmitrijs2005/docverify/internal/server/repositories/filehashes"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	FileHashes(db dbx.DBTX) filehashes.Repository
}
