package clearance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avissapr/nodues/internal/models"
)

func day(d int) time.Time {
	return time.Date(2026, 4, d, 12, 0, 0, 0, time.UTC)
}

func TestCurrentCase(t *testing.T) {
	cases := []models.Case{
		{FormID: "F1", EmployeeID: "E100", Status: models.StatusPending, SubmissionDate: day(1)},
		{FormID: "F2", EmployeeID: "E100", Status: models.StatusRejected, SubmissionDate: day(2)},
		{FormID: "F3", EmployeeID: "E200", Status: models.StatusPending, SubmissionDate: day(3)},
	}

	t.Run("employee id must match exactly", func(t *testing.T) {
		assert.Nil(t, CurrentCase(cases, "e100"))
		assert.Nil(t, CurrentCase(cases, "E999"))
	})

	t.Run("no filter returns most recent of any status", func(t *testing.T) {
		got := CurrentCase(cases, "E100")
		require.NotNil(t, got)
		assert.Equal(t, "F2", got.FormID)
	})

	t.Run("status filter narrows candidates", func(t *testing.T) {
		got := CurrentCase(cases, "E100", models.StatusPending)
		require.NotNil(t, got)
		assert.Equal(t, "F1", got.FormID)
	})

	t.Run("no match returns nil not error", func(t *testing.T) {
		assert.Nil(t, CurrentCase(cases, "E100", models.StatusITCompleted))
	})
}

func TestCurrentCaseRecency(t *testing.T) {
	t.Run("most recent submission wins", func(t *testing.T) {
		cases := []models.Case{
			{FormID: "OLD", EmployeeID: "E1", Status: models.StatusPending, SubmissionDate: day(1)},
			{FormID: "NEW", EmployeeID: "E1", Status: models.StatusPending, SubmissionDate: day(9)},
		}
		got := CurrentCase(cases, "E1")
		require.NotNil(t, got)
		assert.Equal(t, "NEW", got.FormID)
	})

	t.Run("missing submission date falls back to last updated", func(t *testing.T) {
		cases := []models.Case{
			{FormID: "DATED", EmployeeID: "E1", Status: models.StatusPending, SubmissionDate: day(3)},
			{FormID: "UPDATED", EmployeeID: "E1", Status: models.StatusPending, LastUpdated: day(7)},
		}
		got := CurrentCase(cases, "E1")
		require.NotNil(t, got)
		assert.Equal(t, "UPDATED", got.FormID)
	})
}

func TestCurrentActiveCase(t *testing.T) {
	t.Run("active statuses block, terminal do not", func(t *testing.T) {
		for _, status := range models.ActiveStatuses() {
			cases := []models.Case{{FormID: "F", EmployeeID: "E1", Status: status, SubmissionDate: day(1)}}
			assert.NotNil(t, CurrentActiveCase(cases, "E1"), "status %q should be active", status)
		}
		for _, status := range []models.CaseStatus{models.StatusITCompleted, models.StatusRejected} {
			cases := []models.Case{{FormID: "F", EmployeeID: "E1", Status: status, SubmissionDate: day(1)}}
			assert.Nil(t, CurrentActiveCase(cases, "E1"), "status %q should not be active", status)
		}
	})

	t.Run("capitalized Pending counts as active", func(t *testing.T) {
		cases := []models.Case{{FormID: "F", EmployeeID: "E1", Status: models.CaseStatus("Pending"), SubmissionDate: day(1)}}
		got := CurrentActiveCase(cases, "E1")
		require.NotNil(t, got)
		assert.Equal(t, "F", got.FormID)
	})

	t.Run("capitalized Rejected does not count as active", func(t *testing.T) {
		cases := []models.Case{{FormID: "F", EmployeeID: "E1", Status: models.CaseStatus("Rejected"), SubmissionDate: day(1)}}
		assert.Nil(t, CurrentActiveCase(cases, "E1"))
	})
}
