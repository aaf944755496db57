package clearance

import (
	"context"
	"sort"

	"github.com/avissapr/nodues/internal/models"
	"github.com/avissapr/nodues/internal/store"
)

// TrackingView is the employee-facing projection of the current case: the
// record itself plus the derived timeline and per-form completion.
type TrackingView struct {
	Case     *models.Case           `json:"application"`
	Timeline []models.TimelineEvent `json:"timeline"`
	Forms    []models.FormStatus    `json:"forms"`
}

// Tracking returns the employee's current case with its timeline and form
// statuses. A rejected current case is still shown, with its assigned forms
// cleared so the portal stops prompting for work that no longer matters.
//
// (nil, nil) means the employee has no application to track; that is an empty
// result, not an error.
func (s *Service) Tracking(ctx context.Context, employeeID string) (*TrackingView, error) {
	var cases []models.Case
	if err := s.store.Load(ctx, store.CollectionApplications, &cases); err != nil {
		s.metrics.StoreOp("load", "error")
		return nil, &StorageError{Op: "tracking", Err: err}
	}

	current := CurrentCase(cases, employeeID, trackableStatuses()...)
	if current == nil {
		return nil, nil
	}

	shown := *current
	if shown.Status.IsRejected() {
		shown.AssignedForms = []models.AssignedForm{}
	}

	return &TrackingView{
		Case:     &shown,
		Timeline: BuildTimeline(&shown),
		Forms:    FormsStatus(&shown),
	}, nil
}

// trackableStatuses is the active set plus the terminal states, so completed
// and rejected cases remain visible on the tracking page.
func trackableStatuses() []models.CaseStatus {
	return append(models.ActiveStatuses(), models.StatusITCompleted, models.StatusRejected)
}

// ListCertificates returns the employee's downloadable certificates, merged
// from live cases and archived history snapshots.
//
// Only successful artifacts are listed. The two locations overlap for
// archived cases, so entries are de-duplicated by certificate ID with the
// active copy winning; results are ordered newest first.
func (s *Service) ListCertificates(ctx context.Context, employeeID string) ([]models.CertificateView, error) {
	var cases []models.Case
	if err := s.store.Load(ctx, store.CollectionApplications, &cases); err != nil {
		s.metrics.StoreOp("load", "error")
		return nil, &StorageError{Op: "certificate listing", Err: err}
	}
	var entries []models.HistoryEntry
	if err := s.store.Load(ctx, store.CollectionHistory, &entries); err != nil {
		s.metrics.StoreOp("load", "error")
		return nil, &StorageError{Op: "certificate listing", Err: err}
	}

	seen := map[string]bool{}
	out := []models.CertificateView{}

	add := func(cert models.Certificate, source string) {
		if cert.Status != models.CertificateSuccess || seen[cert.ID] {
			return
		}
		seen[cert.ID] = true
		out = append(out, models.CertificateView{Certificate: cert, Source: source})
	}

	for i := range cases {
		if cases[i].EmployeeID != employeeID {
			continue
		}
		for _, cert := range cases[i].Certificates {
			add(cert, models.CertificateSourceActive)
		}
	}
	for i := range entries {
		if entries[i].EmployeeID != employeeID {
			continue
		}
		for _, cert := range entries[i].PreservedData.Certificates {
			add(cert, models.CertificateSourceHistorical)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	return out, nil
}

// CertificateByID resolves a certificate for download, scanning live cases
// first and history second.
//
// Returns ForbiddenError when the certificate exists but belongs to another
// employee, NotFoundError when no such certificate exists at all.
func (s *Service) CertificateByID(ctx context.Context, employeeID, certID string) (*models.Certificate, error) {
	var cases []models.Case
	if err := s.store.Load(ctx, store.CollectionApplications, &cases); err != nil {
		s.metrics.StoreOp("load", "error")
		return nil, &StorageError{Op: "certificate lookup", Err: err}
	}
	var entries []models.HistoryEntry
	if err := s.store.Load(ctx, store.CollectionHistory, &entries); err != nil {
		s.metrics.StoreOp("load", "error")
		return nil, &StorageError{Op: "certificate lookup", Err: err}
	}

	check := func(owner string, cert models.Certificate) (*models.Certificate, error) {
		if owner != employeeID {
			return nil, &ForbiddenError{Resource: "certificate", ID: certID}
		}
		if cert.Status != models.CertificateSuccess {
			return nil, &NotFoundError{Resource: "certificate", ID: certID}
		}
		return &cert, nil
	}

	for i := range cases {
		for _, cert := range cases[i].Certificates {
			if cert.ID == certID {
				return check(cases[i].EmployeeID, cert)
			}
		}
	}
	for i := range entries {
		for _, cert := range entries[i].PreservedData.Certificates {
			if cert.ID == certID {
				return check(entries[i].EmployeeID, cert)
			}
		}
	}
	return nil, &NotFoundError{Resource: "certificate", ID: certID}
}

// HistoryView is an employee's archived cases plus aggregate counts.
type HistoryView struct {
	Entries []models.HistoryEntry `json:"history"`
	Summary models.HistorySummary `json:"summary"`
}

// History returns the employee's archived cases, newest first, with counts of
// completed and rejected outcomes.
func (s *Service) History(ctx context.Context, employeeID string) (*HistoryView, error) {
	var entries []models.HistoryEntry
	if err := s.store.Load(ctx, store.CollectionHistory, &entries); err != nil {
		s.metrics.StoreOp("load", "error")
		return nil, &StorageError{Op: "history", Err: err}
	}

	view := &HistoryView{Entries: []models.HistoryEntry{}}
	for i := range entries {
		if entries[i].EmployeeID != employeeID {
			continue
		}
		view.Entries = append(view.Entries, entries[i])
		view.Summary.Total++
		if entries[i].FinalStatus.IsRejected() {
			view.Summary.Rejected++
		} else {
			view.Summary.Completed++
		}
	}

	sort.Slice(view.Entries, func(i, j int) bool {
		return view.Entries[i].CompletedAt.After(view.Entries[j].CompletedAt)
	})
	return view, nil
}

// CasesByStatus returns every case currently in one of the given statuses,
// newest first. Backs the HOD and IT dashboards.
func (s *Service) CasesByStatus(ctx context.Context, statuses ...models.CaseStatus) ([]models.Case, error) {
	var cases []models.Case
	if err := s.store.Load(ctx, store.CollectionApplications, &cases); err != nil {
		s.metrics.StoreOp("load", "error")
		return nil, &StorageError{Op: "case listing", Err: err}
	}

	out := []models.Case{}
	for i := range cases {
		for _, want := range statuses {
			if cases[i].Status.Matches(want) {
				out = append(out, cases[i])
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecencyKey().After(out[j].RecencyKey())
	})
	return out, nil
}

// CaseByID returns a single case by its form id, for staff detail views.
func (s *Service) CaseByID(ctx context.Context, caseID string) (*models.Case, error) {
	var cases []models.Case
	if err := s.store.Load(ctx, store.CollectionApplications, &cases); err != nil {
		s.metrics.StoreOp("load", "error")
		return nil, &StorageError{Op: "case lookup", Err: err}
	}
	for i := range cases {
		if cases[i].FormID == caseID {
			c := cases[i]
			return &c, nil
		}
	}
	return nil, &NotFoundError{Resource: "application", ID: caseID}
}
