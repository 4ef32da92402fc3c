package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/dvloznov/sales-pipeline/internal/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlserver"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlserver/*.sql
var migrationsFS embed.FS

// RequiredTables must exist before a batch is written.
var RequiredTables = []string{"customers", "products", "transactions"}

// VerifySchema fails with a *domain.WriteError wrapping domain.ErrMissingTable
// when any required table is absent.
func (s *Store) VerifySchema(ctx context.Context) error {
	query := fmt.Sprintf(
		"SELECT LOWER(table_name) FROM information_schema.tables WHERE table_schema = %s AND LOWER(table_name) IN ('customers', 'products', 'transactions')",
		s.dialect.currentSchema(),
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return writeError("", "verify schema", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(RequiredTables))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return writeError("", "verify schema", err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return writeError("", "verify schema", err)
	}

	var missing []string
	for _, t := range RequiredTables {
		if !found[t] {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return &domain.WriteError{
			Table: strings.Join(missing, ", "),
			Op:    "verify schema",
			Err:   domain.ErrMissingTable,
		}
	}
	return nil
}

// ProvisionSchema applies the embedded schema for dialect. It opens and closes its
// own connection. An up-to-date schema is not an error.
func ProvisionSchema(ctx context.Context, dialect Dialect, dsn string) error {
	log := logger.FromContext(ctx)

	db, err := Open(ctx, dialect, dsn)
	if err != nil {
		return fmt.Errorf("ProvisionSchema: %w", err)
	}

	var driver database.Driver
	switch dialect {
	case SQLServer:
		driver, err = sqlserver.WithInstance(db, &sqlserver.Config{})
	default:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		db.Close()
		return fmt.Errorf("ProvisionSchema: creating migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		db.Close()
		return fmt.Errorf("ProvisionSchema: opening embedded schema: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("ProvisionSchema: creating migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Warn().Err(srcErr).Msg("Failed to close schema source")
		}
		if dbErr != nil {
			log.Warn().Err(dbErr).Msg("Failed to close schema database")
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Str("dialect", string(dialect)).Msg("Schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ProvisionSchema: applying schema: %w", err)
	}

	version, _, _ := m.Version()
	log.Info().Str("dialect", string(dialect)).Uint("version", version).Msg("Schema provisioned")
	return nil
}
