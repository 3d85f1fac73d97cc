// Package acquire executes the fetch side of a reconciliation plan: a small
// worker pool drives the external retrieval tool under a shared rate limit,
// records every outcome in the ledger as it happens, and never lets one
// entry's failure abort the batch.
package acquire
