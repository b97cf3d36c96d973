// Package cache memoizes correlation results by fingerprint.
//
// A Gateway fronts a durable Backend with an in-process LRU and collapses
// concurrent requests for the same key into one computation. Backends:
//   - Store: SQLite file, the default for a single workstation
//   - ObjectStore: S3-compatible bucket shared between machines
//   - Memory: process-local, for tests
//
// # Entries
//
// Each entry is keyed by the 32-character hex form of its fingerprint and
// holds canonical JSON metadata (shape, averaging, codec version) plus a
// little-endian float64 payload: the lag times followed by the data matrix,
// row-major. Values are stored bit-exactly, NaN included.
//
// # Write Semantics
//
//   - Results are stored before they are returned to the caller
//   - Writers racing on one key both succeed; the last write wins
//   - Each write is a single statement or object upload, never partial
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package cache
