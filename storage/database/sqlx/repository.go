// Package sqlxrepos implements the domain repositories on top of jmoiron/sqlx.
// Queries are written with "?" placeholders and rebound for the executor's driver.
package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/certify/core"
)

type repository struct {
	db *sqlx.DB
}

func (repo repository) exec(exec []core.DBExecutor) core.DBExecutor {
	return core.GetExec(repo.db, exec)
}

// trapNoRowsErr maps sql.ErrNoRows to the domain's not found error.
func trapNoRowsErr(err, notFound error) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return err
}
