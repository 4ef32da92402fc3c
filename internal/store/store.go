package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// database/sql drivers for the supported dialects.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
)

// DefaultBatchSize is the number of rows written per statement.
const DefaultBatchSize = 1000

// Store is the relational target: dimension upserts, fact appends and load run
// bookkeeping over one *sql.DB.
type Store struct {
	db        *sql.DB
	dialect   Dialect
	batchSize int
}

// Open connects to the target and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: opening %s connection: %w", dialect, err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: pinging %s: %w", dialect, err)
	}
	return db, nil
}

// New wraps an open database. A non-positive batchSize selects DefaultBatchSize.
func New(db *sql.DB, dialect Dialect, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Store{db: db, dialect: dialect, batchSize: batchSize}
}

// DB exposes the underlying connection pool for read-side queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
