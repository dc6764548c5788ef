package config

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/Tushar4059x/the-hive-project/eventstore"
	"github.com/Tushar4059x/the-hive-project/eventstore/memengine"
	"github.com/Tushar4059x/the-hive-project/eventstore/postgresengine"
)

const (
	postgresDriverName = "postgres"

	defaultMaxConnections    = int32(8)
	defaultMinConnections    = int32(2)
	defaultMaxConnLifetime   = time.Hour
	defaultMaxConnIdleTime   = time.Minute * 5
	defaultHealthCheckPeriod = time.Minute
	defaultConnectTimeout    = time.Second * 5

	defaultMaxOpenConnections = 50
	defaultMaxIdleConnections = 10
)

var (
	// ErrConnectingDatabaseFailed is returned when a pool cannot be created or the first ping fails.
	ErrConnectingDatabaseFailed = errors.New("connecting to the database failed")

	// ErrUnknownStore is returned by OpenEventStore for an unknown store or adapter name.
	ErrUnknownStore = errors.New("unknown event store backend")
)

// PGXPoolConfig parses dsn and applies the pool tuning used for the hive server.
func PGXPoolConfig(dsn string) (*pgxpool.Config, error) {
	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabaseFailed, err)
	}

	dbConfig.MaxConns = defaultMaxConnections
	dbConfig.MinConns = defaultMinConnections
	dbConfig.MaxConnLifetime = defaultMaxConnLifetime
	dbConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	dbConfig.HealthCheckPeriod = defaultHealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return dbConfig, nil
}

// OpenPGXPool creates and pings a pgx pool.
func OpenPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	dbConfig, err := PGXPoolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabaseFailed, err)
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, errors.Join(ErrConnectingDatabaseFailed, pingErr)
	}

	return pool, nil
}

// OpenSQLDB opens and pings a database/sql handle on the lib/pq driver.
func OpenSQLDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(postgresDriverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabaseFailed, err)
	}

	configureSQLPool(db)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectingDatabaseFailed, pingErr)
	}

	return db, nil
}

// OpenSQLX opens and pings a sqlx handle on the lib/pq driver.
func OpenSQLX(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(postgresDriverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabaseFailed, err)
	}

	configureSQLPool(db.DB)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectingDatabaseFailed, pingErr)
	}

	return db, nil
}

func configureSQLPool(db *sql.DB) {
	db.SetMaxOpenConns(defaultMaxOpenConnections)
	db.SetMaxIdleConns(defaultMaxIdleConnections)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)
}

// StoreObservability carries the optional collectors handed to the event store.
type StoreObservability struct {
	Logger           eventstore.Logger
	ContextualLogger eventstore.ContextualLogger
	Metrics          eventstore.MetricsCollector
	Tracing          eventstore.TracingCollector
}

// Migrate applies the schema migrations to the database named by cfg.PostgresDSN.
func Migrate(ctx context.Context, cfg *Config, logger eventstore.Logger) error {
	db, err := OpenSQLDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	return postgresengine.MigrateSchema(db, logger)
}

// OpenEventStore builds the store selected by cfg. The returned close function releases its connections.
// With cfg.AutoMigrate the schema is migrated first.
func OpenEventStore(ctx context.Context, cfg *Config, obs StoreObservability) (eventstore.Store, func(), error) {
	switch cfg.Store {
	case StoreMemory:
		options := []memengine.Option{}
		if obs.Logger != nil {
			options = append(options, memengine.WithLogger(obs.Logger))
		}

		return memengine.NewEventStore(options...), func() {}, nil

	case StorePostgres:
		if cfg.AutoMigrate {
			if err := Migrate(ctx, cfg, obs.Logger); err != nil {
				return nil, nil, err
			}
		}

		return openPostgresStore(ctx, cfg, postgresOptions(cfg, obs))

	default:
		return nil, nil, errors.Join(ErrUnknownStore, errors.New(cfg.Store))
	}
}

func postgresOptions(cfg *Config, obs StoreObservability) []postgresengine.Option {
	options := []postgresengine.Option{postgresengine.WithTableName(cfg.EventsTable)}

	if obs.Logger != nil {
		options = append(options, postgresengine.WithLogger(obs.Logger))
	}

	if obs.ContextualLogger != nil {
		options = append(options, postgresengine.WithContextualLogger(obs.ContextualLogger))
	}

	if obs.Metrics != nil {
		options = append(options, postgresengine.WithMetrics(obs.Metrics))
	}

	if obs.Tracing != nil {
		options = append(options, postgresengine.WithTracing(obs.Tracing))
	}

	return options
}

func openPostgresStore(ctx context.Context, cfg *Config, options []postgresengine.Option) (eventstore.Store, func(), error) {
	switch cfg.PostgresAdapter {
	case AdapterPGXPool:
		pool, err := OpenPGXPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := postgresengine.NewEventStoreFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return store, pool.Close, nil

	case AdapterSQLDB:
		db, err := OpenSQLDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := postgresengine.NewEventStoreFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil

	case AdapterSQLX:
		db, err := OpenSQLX(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := postgresengine.NewEventStoreFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil

	default:
		return nil, nil, errors.Join(ErrUnknownStore, errors.New(cfg.PostgresAdapter))
	}
}
