// Package ledger persists playlist synchronization state and exposes helpers
// for driving entry lifecycles.
//
// The ledger is the system's only source of truth for what has already been
// acquired and tagged. It is a human-inspectable JSON file keyed by playlist
// then entry, replaced atomically on every mutation (write to a temp file in
// the same directory, fsync, rename) so a crash mid-write never corrupts
// previously committed state. A file lock taken beside the ledger guards
// against concurrent runs on the same library.
//
// Loading fails closed: an unreadable or corrupt ledger aborts the run instead
// of being treated as empty, because an "empty" ledger would schedule a mass
// re-download of the entire library. A missing file is a fresh ledger, not
// corruption.
//
// Entries present in the ledger but absent from the current remote listing are
// deliberately left untouched. Remote listings fail in partial and transient
// ways; deleting local state (or files) on their say-so could destroy library
// content. Do not add removal logic here.
package ledger
