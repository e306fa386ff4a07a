package analyzer

import "github.com/nvandessel/threadwatch/internal/models"

// MergeState folds the durable fields of a previously stored record
// into a freshly analyzed one and returns the fresh record. Analysis
// output (score, branches, topics, activity) always comes from fresh;
// identity and scheduling state survive from prior:
//
//   - CreatedAt and JobID are kept from prior when set.
//   - Engaged is the union, prior entries first.
//   - For an enabled prior, the backoff ratchet (level, last check,
//     last new activity) is kept: re-analysis must not reset a schedule
//     the scheduler owns. A retired prior instead comes back enabled at
//     the fresh level-zero schedule, since the only way a retired
//     thread reaches analysis again is new activity.
//
// Either argument may be nil; a nil prior returns fresh unchanged.
func MergeState(fresh, prior *models.TrackedThread) *models.TrackedThread {
	if fresh == nil || prior == nil {
		return fresh
	}

	if !prior.CreatedAt.IsZero() {
		fresh.CreatedAt = prior.CreatedAt
	}
	if fresh.JobID == "" {
		fresh.JobID = prior.JobID
	}

	if len(prior.Engaged) > 0 {
		merged := make([]string, len(prior.Engaged))
		copy(merged, prior.Engaged)
		seen := make(map[string]bool, len(merged))
		for _, did := range merged {
			seen[did] = true
		}
		for _, did := range fresh.Engaged {
			if !seen[did] {
				merged = append(merged, did)
				seen[did] = true
			}
		}
		fresh.Engaged = merged
	}

	if len(fresh.OwnReplyTexts) == 0 {
		fresh.OwnReplyTexts = prior.OwnReplyTexts
	}

	if prior.Enabled {
		fresh.BackoffLevel = prior.BackoffLevel
		if !prior.LastCheckAt.IsZero() {
			fresh.LastCheckAt = prior.LastCheckAt
		}
		if !prior.LastNewActivityAt.IsZero() {
			fresh.LastNewActivityAt = prior.LastNewActivityAt
		}
	}
	return fresh
}
