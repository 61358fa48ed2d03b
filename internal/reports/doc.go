// Package reports implements the report manager: an in-memory, observable
// view of the report collection kept consistent with a durable medium.
//
// OPERATION MODEL:
//
// Each operation calls the medium first and patches the cache only after the
// medium returns:
//  1. AddReport / UpdateReport / DeleteReport / LoadReports call the medium
//     without holding any lock
//  2. On success the cache is patched under the manager mutex and the error
//     is cleared
//  3. On failure the cache is left alone, the error is set and returned
//
// Callers therefore see the cache either before or after an operation, never
// in between.
//
// CONCURRENCY:
//
// Operations may run from many goroutines. There is no serialization point
// across operations, so effects become visible in the order medium calls
// return, not the order operations were invoked. Two consequences are kept
// on purpose and covered by tests:
//   - an update that started before a delete and finishes after it puts the
//     record back (cache and medium), merged over its pre-delete state
//   - a load that reads the medium while an add is in flight may be followed
//     by that add appending its record, possibly a second time
//
// The pre-image for UpdateReport is always the cached record, never a fresh
// read from the medium.
package reports
