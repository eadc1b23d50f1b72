// Package database provides SQLite-based storage for dupcheck run history.
//
// Every finished run is stored with its counts and the full report as
// JSON, so past results can be listed and reopened without re-querying the
// workflow API. Runs are also indexed by the digest of the input document,
// which lets the CLI tell the user that an identical document was checked
// before.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode lets the history command read while the server writes
package database
