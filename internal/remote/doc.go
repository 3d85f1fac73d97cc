// Package remote turns configured playlist sources into concrete playlist
// references and reads authoritative entry snapshots through the listing
// tool. A listing failure is reported as ErrUnavailable so the run can skip
// that playlist and continue with the rest.
package remote
