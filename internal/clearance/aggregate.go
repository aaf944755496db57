package clearance

import (
	"sort"

	"github.com/avissapr/nodues/internal/models"
)

// CurrentCase resolves the single "current" case for an employee from the
// full, possibly duplicated case collection.
//
// Filtering:
//   - employeeId must match exactly, with no normalization;
//   - when a status allow-list is supplied, the case status must match one of
//     its entries per models.CaseStatus.Matches (exact, except the
//     case-insensitive "pending" carve-out).
//
// Among the remaining candidates the most recent wins, comparing
// submissionDate with a fallback to lastUpdated. The sort is not stable:
// candidates with exactly equal timestamps resolve in implementation-defined
// order, which is an accepted ambiguity of the collection format.
//
// Returns nil when nothing matches. A nil result means "no current case" and
// is never an error.
func CurrentCase(cases []models.Case, employeeID string, statuses ...models.CaseStatus) *models.Case {
	var candidates []int
	for i := range cases {
		if cases[i].EmployeeID != employeeID {
			continue
		}
		if len(statuses) > 0 && !statusAllowed(cases[i].Status, statuses) {
			continue
		}
		candidates = append(candidates, i)
	}

	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(a, b int) bool {
		return cases[candidates[a]].RecencyKey().After(cases[candidates[b]].RecencyKey())
	})

	return &cases[candidates[0]]
}

// CurrentActiveCase resolves the employee's current case restricted to the
// active-status set, i.e. the case that blocks a new submission.
func CurrentActiveCase(cases []models.Case, employeeID string) *models.Case {
	return CurrentCase(cases, employeeID, models.ActiveStatuses()...)
}

func statusAllowed(s models.CaseStatus, allow []models.CaseStatus) bool {
	for _, want := range allow {
		if s.Matches(want) {
			return true
		}
	}
	return false
}
