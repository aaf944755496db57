package clearance

import (
	"fmt"
	"sort"
	"time"

	"github.com/avissapr/nodues/internal/models"
)

// BuildTimeline derives the time-ordered event view for a case. It is a pure
// function of the record: no side effects, no persistence.
//
// Events are emitted conditionally (see each block) and then ordered
// ascending by each event's own date, not by logical step order. Two events
// sharing a timestamp have no defined relative order.
func BuildTimeline(c *models.Case) []models.TimelineEvent {
	if c == nil {
		return nil
	}

	var events []models.TimelineEvent

	events = append(events, models.TimelineEvent{
		Type:    models.EventSubmitted,
		Title:   "Application Submitted",
		Date:    c.SubmissionDate,
		Status:  "completed",
		Details: fmt.Sprintf("No-dues application submitted (%s)", c.NoDuesType),
	})

	// The initial review marks the application leaving the employee's hands.
	// Suppressed while the case is still pending.
	if !c.Status.Matches(models.StatusPending) {
		status := "completed"
		if c.Status.IsRejected() && c.HODApproval == nil && c.ITProcessing == nil {
			status = "rejected"
		}
		events = append(events, models.TimelineEvent{
			Type:   models.EventITInitialReview,
			Title:  "Initial Review",
			Date:   fallbackDate(c.FinalSubmittedAt, c.LastUpdated),
			Status: status,
		})
	}

	if len(c.AssignedForms) > 0 {
		events = append(events, models.TimelineEvent{
			Type:    models.EventFormsAssigned,
			Title:   "Forms Assigned",
			Date:    fallbackDate(nil, c.LastUpdated),
			Status:  "completed",
			Details: fmt.Sprintf("%d form(s) assigned", len(c.AssignedForms)),
		})
	}

	if len(c.FormResponses) > 0 {
		events = append(events, models.TimelineEvent{
			Type:    models.EventFormsCompleted,
			Title:   "Forms Completed",
			Date:    fallbackDate(c.FinalSubmittedAt, c.LastUpdated),
			Status:  "completed",
			Details: fmt.Sprintf("%d form(s) completed", len(c.FormResponses)),
		})
	}

	if c.HODApproval != nil {
		events = append(events, models.TimelineEvent{
			Type:    models.EventHODApproved,
			Title:   "HOD Approved",
			Date:    c.HODApproval.ApprovedAt,
			Status:  "completed",
			Details: fmt.Sprintf("Approved by %s", c.HODApproval.ApprovedBy),
		})
	}

	if c.ITProcessing != nil {
		status := "completed"
		if c.ITProcessing.Action != "completed" {
			status = "rejected"
		}
		events = append(events, models.TimelineEvent{
			Type:    models.EventITFinalProcessing,
			Title:   "IT Processing",
			Date:    c.ITProcessing.ProcessedAt,
			Status:  status,
			Details: c.ITProcessing.Remarks,
		})
	}

	if c.Status == models.StatusITCompleted && len(c.Certificates) > 0 {
		events = append(events, models.TimelineEvent{
			Type:    models.EventCertificatesGenerated,
			Title:   "Certificates Generated",
			Date:    latestCertificateDate(c.Certificates),
			Status:  "completed",
			Details: fmt.Sprintf("%d certificate(s) available", len(c.Certificates)),
		})
	}

	// Ordering is by the events' own dates. sort.Slice is not stable, so
	// equal dates resolve in implementation-defined order; accepted as-is.
	sort.Slice(events, func(a, b int) bool {
		return events[a].Date.Before(events[b].Date)
	})

	return events
}

// FormsStatus maps each assigned form to completed/pending by checking for
// its response key in formResponses. Titles outside the known lookup table
// have no key and always report pending.
func FormsStatus(c *models.Case) []models.FormStatus {
	if c == nil {
		return nil
	}

	statuses := make([]models.FormStatus, 0, len(c.AssignedForms))
	for _, form := range c.AssignedForms {
		fs := models.FormStatus{Title: form.Title, Path: form.Path}
		if key, ok := models.KeyForFormTitle(form.Title); ok {
			fs.Key = key
			_, fs.Completed = c.FormResponses[key]
		}
		statuses = append(statuses, fs)
	}
	return statuses
}

func fallbackDate(primary *time.Time, fallback time.Time) time.Time {
	if primary != nil && !primary.IsZero() {
		return *primary
	}
	return fallback
}

func latestCertificateDate(certs []models.Certificate) time.Time {
	var latest time.Time
	for _, c := range certs {
		if c.GeneratedAt.After(latest) {
			latest = c.GeneratedAt
		}
	}
	return latest
}
