// Package journal keeps a local history of backup attempts.
//
// Every commit, sync and push the daemon attempts is recorded as an Entry
// with its outcome, the revision it produced and a short detail string. The
// history is read back by "backer history".
//
// # Backends
//
// SQLiteStore persists entries in a SQLite database through the pure-Go
// modernc.org/sqlite driver, so no cgo toolchain is needed. MemoryStore keeps
// entries in memory and is used by tests and when no journal path is
// configured.
//
// # Retention
//
// Stores created with a positive MaxEntries drop the oldest entries after
// each Record so the history never grows past that count.
package journal
