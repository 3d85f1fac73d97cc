package differ

import (
	"time"

	"playsync/internal/ledger"
	"playsync/internal/remote"
	"playsync/internal/retry"
)

// Reasons recorded on plan entries. They surface in logs and run reports.
const (
	ReasonNew             = "new"
	ReasonPending         = "pending"
	ReasonRetry           = "retry"
	ReasonFirstTag        = "first_tag"
	ReasonPositionChanged = "position_changed"
	ReasonUnchanged       = "unchanged"
	ReasonRetryExhausted  = "retry_exhausted"
	ReasonRetryCooldown   = "retry_cooldown"
)

// PlanEntry pairs a remote entry with the classification that put it in its
// plan bucket.
type PlanEntry struct {
	Remote remote.Entry
	Reason string
}

// Plan is the reconciliation outcome for one playlist. Every remote entry
// lands in exactly one bucket. Ledger entries absent from the remote listing
// never appear in a plan and are left untouched.
type Plan struct {
	PlaylistID string
	// Fetch holds entries scheduled for acquisition; each is tagged after a
	// successful fetch, so Fetch and Tag are disjoint.
	Fetch []PlanEntry
	// Tag holds entries whose audio already exists locally but whose
	// metadata needs writing or refreshing.
	Tag []PlanEntry
	// Unchanged holds entries already tagged at their current position.
	Unchanged []PlanEntry
	// Skipped holds failed entries held back by the retry policy.
	Skipped []PlanEntry
}

// Empty reports whether the plan schedules no work.
func (p Plan) Empty() bool {
	return len(p.Fetch) == 0 && len(p.Tag) == 0
}

// Policy carries the inputs that make Reconcile deterministic.
type Policy struct {
	Retry retry.Policy
	// Now is the clock used for cooldown eligibility. Defaults to time.Now.
	Now func() time.Time
}

// Reconcile classifies every remote entry against the ledger's view of the
// playlist. Classification order per entry: new, retry, position-changed,
// unchanged.
func Reconcile(playlistID string, remoteEntries []remote.Entry, entries map[string]*ledger.Entry, policy Policy) Plan {
	now := time.Now
	if policy.Now != nil {
		now = policy.Now
	}

	plan := Plan{PlaylistID: playlistID}
	for _, re := range remoteEntries {
		known, ok := entries[re.ID]
		if !ok {
			plan.Fetch = append(plan.Fetch, PlanEntry{Remote: re, Reason: ReasonNew})
			continue
		}

		switch known.Status {
		case ledger.StatusPending:
			// Observed by an earlier run that never finished fetching.
			plan.Fetch = append(plan.Fetch, PlanEntry{Remote: re, Reason: ReasonPending})
		case ledger.StatusFailed:
			switch {
			case policy.Retry.Exhausted(known.AttemptCount):
				plan.Skipped = append(plan.Skipped, PlanEntry{Remote: re, Reason: ReasonRetryExhausted})
			case policy.Retry.Eligible(known.AttemptCount, known.LastAttemptAt, now()):
				plan.Fetch = append(plan.Fetch, PlanEntry{Remote: re, Reason: ReasonRetry})
			default:
				plan.Skipped = append(plan.Skipped, PlanEntry{Remote: re, Reason: ReasonRetryCooldown})
			}
		case ledger.StatusAcquired:
			plan.Tag = append(plan.Tag, PlanEntry{Remote: re, Reason: ReasonFirstTag})
		case ledger.StatusTagged:
			if known.Position != re.Position {
				plan.Tag = append(plan.Tag, PlanEntry{Remote: re, Reason: ReasonPositionChanged})
			} else {
				plan.Unchanged = append(plan.Unchanged, PlanEntry{Remote: re, Reason: ReasonUnchanged})
			}
		default:
			// Unknown status from a newer ledger version: treat as pending
			// rather than guessing at terminal state.
			plan.Fetch = append(plan.Fetch, PlanEntry{Remote: re, Reason: ReasonPending})
		}
	}
	return plan
}
