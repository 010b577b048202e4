package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// DefaultDSN keeps the database in memory for the lifetime of the process.
const DefaultDSN = "file::memory:?cache=shared"

// Open connects to the sqlite database at dsn and makes sure the schema
// exists.
func Open(ctx context.Context, dsn string) (*bun.DB, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := NewUsers(db).CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}
