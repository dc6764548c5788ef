// Package adapters lets the PostgreSQL event store run on pgxpool.Pool, sql.DB or sqlx.DB.
//
// Every adapter exposes the same small DBAdapter surface, so the store builds its SQL once
// and never needs to know which driver executes it.
package adapters
