// Package syncrun drives one synchronization pass: for every configured
// playlist it reads the remote listing, reconciles it against the ledger,
// acquires what is missing, and normalizes metadata. Playlist faults are
// isolated; only a ledger failure aborts a run.
package syncrun
