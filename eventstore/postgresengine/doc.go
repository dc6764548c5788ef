// Package postgresengine provides the durable PostgreSQL implementation of eventstore.Store.
//
// Ids come from an identity column, so PostgreSQL serializes id assignment across all
// connections. Every write is a single statement (INSERT ... RETURNING or UPDATE ... RETURNING),
// which makes it atomic: an event that has an id is fully committed, and fork increments are
// row-level updates that never block increments of other events.
//
// The store runs on pgxpool.Pool, sql.DB (lib/pq) or sqlx.DB. SQL is built with goqu.
//
// Usage examples:
//
//	// Basic usage
//	pool, _ := pgxpool.NewWithConfig(ctx, cfg)
//	store, _ := postgresengine.NewEventStoreFromPGXPool(pool)
//
//	// With logging, metrics and tracing
//	store, _ := postgresengine.NewEventStoreFromPGXPool(
//		pool,
//		postgresengine.WithTableName("hive_events"),
//		postgresengine.WithLogger(slogLogger),
//		postgresengine.WithMetrics(metricsCollector),
//		postgresengine.WithTracing(tracingCollector),
//	)
//
//	event, _ := store.Insert(ctx, candidate)
//	count, _ := store.IncrementFork(ctx, event.ID)
//
// The schema for the default table is created by MigrateSchema from embedded migrations.
package postgresengine
