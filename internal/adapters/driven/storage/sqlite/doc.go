// Package sqlite provides a unified SQLite-based implementation of the
// capshare store interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements three store interfaces
// through a single database connection:
//
//   - AccountStore: Accounts and their tokens
//   - TargetStore: Export targets
//   - ExportHistoryStore: Export outcomes
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.capshare/data/capshare.db. The
// file holds refresh tokens and is created with owner-only permissions.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
