// Package preflight provides readiness checks for the external tools and
// filesystem paths a sync run depends on.
//
// These checks run in two contexts:
//   - The sync runner calls RunAll before the first playlist. A failed
//     required check aborts the run early instead of failing every entry.
//   - The CLI "playsync status" command displays the same results so a
//     misconfigured host is visible without starting a run.
package preflight
