// Package pgtest opens PostgreSQL connections for integration tests.
// Tests using it are skipped unless HIVE_TEST_POSTGRES_DSN is set.
package pgtest
