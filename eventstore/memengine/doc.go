// Package memengine provides an in-process implementation of eventstore.Store.
//
// It keeps the same ordering and atomicity guarantees as the PostgreSQL engine:
// ids come from one global sequence assigned under a write lock, and fork counters are
// per-event atomics, so increments on different events never contend on a shared lock.
//
// Nothing survives a restart. Use it for development, demos and tests.
package memengine
