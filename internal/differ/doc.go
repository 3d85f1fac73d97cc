// Package differ computes the per-playlist reconciliation plan: which remote
// entries need fetching, which need tagging, and which are already in their
// final state. Reconcile is a pure function of its inputs; the clock is
// injected so cooldown decisions are testable.
package differ
