package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	// Registers the postgres driver used by OpenPostgres.
	_ "github.com/lib/pq"
)

// OpenPostgres connects to Postgres and wraps the connection for bun. The
// caller owns the returned handle and closes it when the pipeline shuts
// down.
func OpenPostgres(dsn string) (*bun.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: postgres dsn is required")
	}
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

// NewPostgresRepositoryFactory opens a Postgres connection and builds the
// order and payload stores on top of it.
func NewPostgresRepositoryFactory(dsn string) (*RepositoryFactory, error) {
	db, err := OpenPostgres(dsn)
	if err != nil {
		return nil, err
	}
	return NewRepositoryFactoryFromDB(db)
}
