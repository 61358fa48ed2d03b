// Package store provides the durable media behind the report manager.
//
// Every medium implements PersistentStore over a single collection,
// "reports", keyed by report id:
//   - SQLite: the default on-device medium (WAL, single writer connection)
//   - Memory: process-local, for tests and throwaway sessions
//   - Redis: a hash on a local redis-server, one field per report
//
// # Contract
//
//   - Add does not pre-check for duplicate ids; a medium that rejects the
//     write (constraint, quota, I/O) returns *StorageError
//   - Get reports absence as (zero, false, nil), not as an error
//   - GetAll order is medium-defined; callers that need an order impose it
//   - Put upserts by id
//   - Delete of an absent id succeeds
//
// No method retries. Durability and atomicity of a single write are the
// medium's own.
//
// # SQLite Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - one open connection: SQLite has a single writer
package store
