// Package models defines the domain entities for the no-dues clearance service.
// It includes the central Case record, generated certificate descriptors,
// immutable history snapshots, and the projections served to employees.
package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ============================================================================
// Lifecycle Statuses
// ============================================================================

// CaseStatus is the lifecycle state of a clearance case.
//
// Status Flow: pending -> Submitted to HOD -> Submitted to IT -> IT Completed.
// Any active status may move to rejected. "approved" is the legacy alias some
// records carry for Submitted to IT and is treated as active.
type CaseStatus string

const (
	StatusPending        CaseStatus = "pending"
	StatusSubmittedToHOD CaseStatus = "Submitted to HOD"
	StatusSubmittedToIT  CaseStatus = "Submitted to IT"
	StatusApproved       CaseStatus = "approved"
	StatusITCompleted    CaseStatus = "IT Completed"
	StatusRejected       CaseStatus = "rejected"
)

// ActiveStatuses returns the statuses under which a case blocks a new
// submission for the same employee.
func ActiveStatuses() []CaseStatus {
	return []CaseStatus{StatusPending, StatusApproved, StatusSubmittedToHOD, StatusSubmittedToIT}
}

// Matches reports whether status s satisfies the allow-list entry want.
//
// Comparison is exact, with one long-standing exception: "pending" matches
// case-insensitively while every other status compares case-sensitively.
// Stored records exist with both "pending" and "Pending", so this asymmetry
// is load-bearing and must not be normalized away.
func (s CaseStatus) Matches(want CaseStatus) bool {
	if strings.EqualFold(string(want), string(StatusPending)) {
		return strings.EqualFold(string(s), string(StatusPending))
	}
	return s == want
}

// IsTerminal reports whether no further employee-initiated transition exists.
func (s CaseStatus) IsTerminal() bool {
	return s == StatusITCompleted || s.IsRejected()
}

// IsRejected matches any status containing "rejected", case-insensitively,
// which is how every read path in the system identifies rejection.
func (s CaseStatus) IsRejected() bool {
	return strings.Contains(strings.ToLower(string(s)), "rejected")
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
// Rejection is reachable from every active status; terminal states allow
// nothing further.
func (s CaseStatus) CanTransitionTo(next CaseStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusRejected {
		return true
	}
	valid := map[CaseStatus][]CaseStatus{
		StatusPending:        {StatusSubmittedToHOD},
		StatusSubmittedToHOD: {StatusSubmittedToIT, StatusApproved},
		StatusSubmittedToIT:  {StatusITCompleted},
		StatusApproved:       {StatusITCompleted},
	}
	for _, v := range valid[s] {
		if v == next {
			return true
		}
	}
	return false
}

// ============================================================================
// Sub-Forms
// ============================================================================

// Sub-form response keys. The set is closed: presence of a key in
// Case.FormResponses means that sub-form is complete.
const (
	SubFormDisposal    = "disposalForm"
	SubFormEFile       = "efileForm"
	SubFormTransfer365 = "form365Transfer"
	SubFormDisposal365 = "form365Disposal"
)

// SubFormKeys lists every known sub-form response key.
func SubFormKeys() []string {
	return []string{SubFormDisposal, SubFormEFile, SubFormTransfer365, SubFormDisposal365}
}

// KnownSubFormKey reports whether key belongs to the closed sub-form set.
func KnownSubFormKey(key string) bool {
	for _, k := range SubFormKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// formTitleToKey maps HOD/IT-assigned form titles to response keys.
// Assigned forms whose titles are absent here never project as completed.
var formTitleToKey = map[string]string{
	"Disposal Form":       SubFormDisposal,
	"E-File Form":         SubFormEFile,
	"Form 365 (Transfer)": SubFormTransfer365,
	"Form 365 (Disposal)": SubFormDisposal365,
}

// KeyForFormTitle resolves an assigned-form title to its response key.
// The second return is false for titles outside the known set.
func KeyForFormTitle(title string) (string, bool) {
	key, ok := formTitleToKey[title]
	return key, ok
}

// DecodeObject decodes raw sub-form input into a JSON object. Input may be a
// JSON object directly or a JSON string wrapping one (legacy clients encode
// payloads twice). Anything that does not ultimately decode to an object is
// rejected.
func DecodeObject(raw json.RawMessage) (map[string]any, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("payload decodes to null, expected an object")
	}
	return obj, nil
}

// ============================================================================
// Case (central entity)
// ============================================================================

// AssignedForm is a sub-form descriptor attached to a case by HOD/IT.
type AssignedForm struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

// HODApproval records the HOD sign-off on a case.
type HODApproval struct {
	ApprovedBy string    `json:"approvedBy"`
	ApprovedAt time.Time `json:"approvedAt"`
}

// ITProcessing records the final IT action on a case.
// Action is "completed" or "rejected".
type ITProcessing struct {
	Action      string    `json:"action"`
	ProcessedBy string    `json:"processedBy"`
	ProcessedAt time.Time `json:"processedAt"`
	Remarks     string    `json:"remarks,omitempty"`
}

// Case is a single employee's clearance application.
//
// A case is created on submission with status pending, mutated in place by
// sub-form saves and approvals, and becomes immutable once terminal. At most
// one case per employee may hold an active status at a time; this is an
// invariant enforced at submission, not a storage constraint.
type Case struct {
	FormID          string     `json:"formId"`
	EmployeeID      string     `json:"employeeId"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Department      string     `json:"department"`
	NoDuesType      string     `json:"noDuesType"`
	OrderLetterFile string     `json:"orderLetterFile"`
	Status          CaseStatus `json:"status"`

	SubmissionDate   time.Time  `json:"submissionDate"`
	LastUpdated      time.Time  `json:"lastUpdated"`
	FinalSubmittedAt *time.Time `json:"finalSubmittedAt,omitempty"`

	// AssignedForms is ordered as assigned; FormResponses keys are drawn from
	// the closed sub-form set, one entry per completed sub-form type.
	AssignedForms []AssignedForm             `json:"assignedForms"`
	FormResponses map[string]json.RawMessage `json:"formResponses"`

	HODApproval  *HODApproval  `json:"hodApproval,omitempty"`
	ITProcessing *ITProcessing `json:"itProcessing,omitempty"`
	Certificates []Certificate `json:"certificates,omitempty"`

	RejectionReason string     `json:"rejectionReason,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	CanSubmitNew    bool       `json:"canSubmitNew,omitempty"`
}

// RecencyKey returns the timestamp used to pick the most recent of several
// cases: submissionDate when set, otherwise lastUpdated.
func (c *Case) RecencyKey() time.Time {
	if !c.SubmissionDate.IsZero() {
		return c.SubmissionDate
	}
	return c.LastUpdated
}

// ============================================================================
// Certificates
// ============================================================================

// Certificate statuses. Failed generations are recorded, never dropped.
const (
	CertificateSuccess = "success"
	CertificateFailed  = "failed"
)

// Certificate describes one generated clearance artifact for a completed
// sub-form. The ID composes case identity, sub-form type, generation time and
// a content fingerprint so that retried generation can never collide with or
// silently overwrite a prior artifact.
type Certificate struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"caseId"`
	FormType    string    `json:"formType"`
	Filename    string    `json:"filename"`
	Filepath    string    `json:"filepath"`
	GeneratedAt time.Time `json:"generatedAt"`
	FileSize    int64     `json:"fileSize"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// Certificate listing sources.
const (
	CertificateSourceActive     = "active"
	CertificateSourceHistorical = "historical"
)

// CertificateView is a certificate tagged with the location it was read from.
// Active (case-held) and historical (preservedData) certificates are both
// valid read paths and are merged, de-duplicated by ID, for listing.
type CertificateView struct {
	Certificate
	Source string `json:"source"`
}

// ============================================================================
// History
// ============================================================================

// PreservedData duplicates a terminal case's nested records exactly as they
// stood at archival time. Never mutated afterwards.
type PreservedData struct {
	Certificates  []Certificate              `json:"certificates"`
	HODApproval   *HODApproval               `json:"hodApproval,omitempty"`
	ITProcessing  *ITProcessing              `json:"itProcessing,omitempty"`
	AssignedForms []AssignedForm             `json:"assignedForms"`
	FormResponses map[string]json.RawMessage `json:"formResponses"`
}

// HistoryEntry is an immutable, append-only snapshot of a terminal case.
type HistoryEntry struct {
	HistoryID      string        `json:"historyId"`
	FormID         string        `json:"formId"`
	EmployeeID     string        `json:"employeeId"`
	Name           string        `json:"name"`
	Department     string        `json:"department"`
	NoDuesType     string        `json:"noDuesType"`
	FinalStatus    CaseStatus    `json:"finalStatus"`
	SubmissionDate time.Time     `json:"submissionDate"`
	CompletedAt    time.Time     `json:"completedAt"`
	PreservedData  PreservedData `json:"preservedData"`
}

// HistorySummary aggregates an employee's archived cases.
type HistorySummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Rejected  int `json:"rejected"`
}

// ============================================================================
// Projections
// ============================================================================

// Timeline event types emitted by the projection builder.
const (
	EventSubmitted             = "submitted"
	EventITInitialReview       = "it_initial_review"
	EventFormsAssigned         = "forms_assigned"
	EventFormsCompleted        = "forms_completed"
	EventHODApproved           = "hod_approved"
	EventITFinalProcessing     = "it_final_processing"
	EventCertificatesGenerated = "certificates_generated"
)

// TimelineEvent is one entry in a case's derived, time-ordered history.
// Events are ordered by their own Date field, not by logical step order.
type TimelineEvent struct {
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	Date    time.Time `json:"date"`
	Status  string    `json:"status"`
	Details string    `json:"details,omitempty"`
}

// FormStatus reports one assigned form's completion in the tracking view.
type FormStatus struct {
	Title     string `json:"title"`
	Path      string `json:"path"`
	Key       string `json:"key,omitempty"`
	Completed bool   `json:"completed"`
}
