package postgresengine

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Tushar4059x/the-hive-project/eventstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// MigrateSchema applies the embedded migrations to db, creating the default "events" table and its indexes.
// Running it against an up-to-date schema is a no-op.
// Stores configured WithTableName need their table created out of band.
func MigrateSchema(db *sql.DB, logger eventstore.Logger) error {
	if db == nil {
		return eventstore.ErrNilDatabaseConnection
	}

	sourceDriver, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return errors.Join(eventstore.ErrMigratingSchemaFailed, err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return errors.Join(eventstore.ErrMigratingSchemaFailed, err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return errors.Join(eventstore.ErrMigratingSchemaFailed, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Join(eventstore.ErrMigratingSchemaFailed, err)
	}

	if logger != nil {
		version, _, _ := m.Version()
		logger.Info(logMsgSchemaMigrated, logAttrTable, defaultEventTableName, logAttrVersion, version)
	}

	return nil
}
