// Package sqlxrepos implements the domain repositories on PostgreSQL
// via sqlx scanning and squirrel query building.
package sqlxrepos

import (
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func wrap(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, "postgres")
}

func orderBy(ordering []core.DBOrdering) string {
	terms := make([]string, len(ordering))
	for i, ord := range ordering {
		terms[i] = ord.String()
	}
	return strings.Join(terms, ", ")
}
