// Package store persists experiment records.
//
// Every backend satisfies Backend; backends that can read their records back
// also satisfy Lister. Callers hold a Backend and never branch on which
// variant they were given.
//
// # Backends
//
//   - SQLStore: SQLite table "experiments", one transaction per record
//   - LogStore: newline-delimited JSON file, one append per record
//   - RedisStore: Redis list, one RPUSH per record
//
// Open picks a backend from a connection string.
//
// # Database Configuration
//
//   - WAL mode: concurrent readers while one process writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: independent handles wait for the write lock
//
// Parameters and data are encoded through a serde.Codec, so registered
// types (datetime, ndarray) survive a round trip through any backend.
package store
