package clearance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avissapr/nodues/internal/metrics"
	"github.com/avissapr/nodues/internal/models"
	"github.com/avissapr/nodues/internal/notify"
	"github.com/avissapr/nodues/internal/security"
	"github.com/avissapr/nodues/internal/store"
)

// CertificateGenerator produces clearance artifacts for a completed case.
// Implemented by the certificates pipeline; faked in tests.
type CertificateGenerator interface {
	// Generate returns the successful and failed artifact descriptors. The
	// error is non-nil only when the whole operation failed: no valid
	// entries, or zero successes despite valid entries.
	Generate(ctx context.Context, caseID string, responses map[string]json.RawMessage) (succeeded, failed []models.Certificate, err error)
}

// Service owns the case lifecycle. Every mutation is a read-modify-write
// cycle against the applications collection, serialized per collection by the
// record store's lock scope; Save is the single commit point.
//
// All collaborators are injected; the service holds no global state.
type Service struct {
	store    store.RecordStore
	certs    CertificateGenerator
	notifier notify.Publisher
	logger   *security.Logger
	metrics  *metrics.Metrics

	now   func() time.Time
	newID func() string
}

// NewService wires a clearance service. notifier, logger and metrics may be
// nil; certs may be nil only if IT completion is never invoked.
func NewService(rs store.RecordStore, certs CertificateGenerator, notifier notify.Publisher, logger *security.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:    rs,
		certs:    certs,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		newID:    newFormID,
	}
}

// newFormID mints a unique, roughly time-ordered case identifier.
func newFormID() string {
	return fmt.Sprintf("ND-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// SubmitRequest carries the applicant fields for a new case.
type SubmitRequest struct {
	Name            string `json:"name"`
	EmployeeID      string `json:"employeeId"`
	Email           string `json:"email"`
	Department      string `json:"department"`
	NoDuesType      string `json:"noDuesType"`
	OrderLetterFile string `json:"orderLetterFile"`
}

// SubmitResult reports the created or transitioned case back to the caller,
// which propagates it into the session context.
type SubmitResult struct {
	CaseID string            `json:"caseId"`
	Status models.CaseStatus `json:"status"`
}

// Submit validates and creates a new clearance case with status pending.
//
// Fails with a ValidationError when a required field or the order-letter file
// reference is missing, and with a ConflictError naming the existing case
// when the employee already has one in an active status.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	required := []struct{ field, value string }{
		{"name", req.Name},
		{"employeeId", req.EmployeeID},
		{"email", req.Email},
		{"department", req.Department},
		{"noDuesType", req.NoDuesType},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, &ValidationError{Field: r.field, Message: "is required"}
		}
	}
	if req.OrderLetterFile == "" {
		return nil, &ValidationError{Field: "orderLetterFile", Message: "order letter attachment is required"}
	}

	var result *SubmitResult
	err := s.store.WithLock(store.CollectionApplications, func() error {
		var cases []models.Case
		if err := s.store.Load(ctx, store.CollectionApplications, &cases); err != nil {
			s.metrics.StoreOp("load", "error")
			return &StorageError{Op: "submit", Err: err}
		}

		if existing := CurrentActiveCase(cases, req.EmployeeID); existing != nil {
			return &ConflictError{FormID: existing.FormID, Status: existing.Status}
		}

		now := s.now()
		c := models.Case{
			FormID:          s.newID(),
			EmployeeID:      req.EmployeeID,
			Name:            req.Name,
			Email:           req.Email,
			Department:      req.Department,
			NoDuesType:      req.NoDuesType,
			OrderLetterFile: req.OrderLetterFile,
			Status:          models.StatusPending,
			SubmissionDate:  now,
			LastUpdated:     now,
			AssignedForms:   []models.AssignedForm{},
			FormResponses:   map[string]json.RawMessage{},
		}

		cases = append(cases, c)
		if err := s.store.Save(ctx, store.CollectionApplications, cases); err != nil {
			s.metrics.StoreOp("save", "error")
			return &StorageError{Op: "submit", Err: err}
		}
		s.metrics.StoreOp("save", "ok")
		s.metrics.CaseTransition(string(models.StatusPending))

		result = &SubmitResult{CaseID: c.FormID, Status: c.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.SecurityEvent(security.EventCaseSubmit, req.EmployeeID, "application", result.CaseID, "", nil)
	}
	return result, nil
}

// SaveSubForm writes one named sub-form payload into the employee's current
// active case. The status is not changed; only formResponses and lastUpdated
// are touched.
//
// The key must belong to the closed sub-form set and the payload must decode
// to a JSON object (a JSON string wrapping an object is accepted for legacy
// clients). Requires a current active case.
func (s *Service) SaveSubForm(ctx context.Context, employeeID, key string, payload json.RawMessage) error {
	if !models.KnownSubFormKey(key) {
		return &ValidationError{Field: "formName", Message: fmt.Sprintf("unknown sub-form %q", key)}
	}

	normalized, err := normalizeObject(payload)
	if err != nil {
		return &ValidationError{Field: key, Message: "payload must be a structured object"}
	}

	return s.store.WithLock(store.CollectionApplications, func() error {
		var cases []models.Case
		if err := s.store.Load(ctx, store.CollectionApplications, &cases); err != nil {
			s.metrics.StoreOp("load", "error")
			return &StorageError{Op: "sub-form save", Err: err}
		}

		current := CurrentActiveCase(cases, employeeID)
		if current == nil {
			return &NotFoundError{Resource: "current application"}
		}

		if current.FormResponses == nil {
			current.FormResponses = map[string]json.RawMessage{}
		}
		current.FormResponses[key] = normalized
		current.LastUpdated = s.now()

		if err := s.store.Save(ctx, store.CollectionApplications, cases); err != nil {
			s.metrics.StoreOp("save", "error")
			return &StorageError{Op: "sub-form save", Err: err}
		}
		s.metrics.StoreOp("save", "ok")
		return nil
	})
}

// FinalSubmitRequest carries the sub-form payloads for final submission.
// Each payload is a JSON object; absent groups are empty.
type FinalSubmitRequest struct {
	Disposal        json.RawMessage `json:"disposalForm"`
	EFile           json.RawMessage `json:"efileForm"`
	Form365Transfer json.RawMessage `json:"form365Transfer"`
	Form365Disposal json.RawMessage `json:"form365Disposal"`
}

// FinalSubmit moves the employee's current case from pending to
// "Submitted to HOD".
//
// Requires a disposal payload AND an e-file payload AND at least one of the
// Form 365 variants, each a structured object. Each missing group fails with
// its own message. On success the provided payloads are merged into
// formResponses and only status, finalSubmittedAt and lastUpdated change
// besides them.
func (s *Service) FinalSubmit(ctx context.Context, employeeID string, req FinalSubmitRequest) (*SubmitResult, error) {
	disposal, err := normalizeObject(req.Disposal)
	if err != nil || disposal == nil {
		return nil, &ValidationError{Field: models.SubFormDisposal, Message: "disposal form is required"}
	}
	efile, err := normalizeObject(req.EFile)
	if err != nil || efile == nil {
		return nil, &ValidationError{Field: models.SubFormEFile, Message: "e-file form is required"}
	}
	transfer, errT := normalizeObject(req.Form365Transfer)
	disposal365, errD := normalizeObject(req.Form365Disposal)
	if errT != nil || errD != nil || (transfer == nil && disposal365 == nil) {
		return nil, &ValidationError{
			Field:   "form365",
			Message: "either Form 365 (transfer) or Form 365 (disposal) is required",
		}
	}

	merged := map[string]json.RawMessage{models.SubFormDisposal: disposal, models.SubFormEFile: efile}
	if transfer != nil {
		merged[models.SubFormTransfer365] = transfer
	}
	if disposal365 != nil {
		merged[models.SubFormDisposal365] = disposal365
	}

	var result *SubmitResult
	err = s.store.WithLock(store.CollectionApplications, func() error {
		var cases []models.Case
		if err := s.store.Load(ctx, store.CollectionApplications, &cases); err != nil {
			s.metrics.StoreOp("load", "error")
			return &StorageError{Op: "final submit", Err: err}
		}

		current := CurrentActiveCase(cases, employeeID)
		if current == nil {
			return &NotFoundError{Resource: "current application"}
		}
		if !current.Status.CanTransitionTo(models.StatusSubmittedToHOD) {
			return &ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("application %s cannot be finally submitted from status %q", current.FormID, current.Status),
			}
		}

		if current.FormResponses == nil {
			current.FormResponses = map[string]json.RawMessage{}
		}
		for k, v := range merged {
			current.FormResponses[k] = v
		}

		now := s.now()
		current.Status = models.StatusSubmittedToHOD
		current.FinalSubmittedAt = &now
		current.LastUpdated = now

		if err := s.store.Save(ctx, store.CollectionApplications, cases); err != nil {
			s.metrics.StoreOp("save", "error")
			return &StorageError{Op: "final submit", Err: err}
		}
		s.metrics.StoreOp("save", "ok")
		s.metrics.CaseTransition(string(models.StatusSubmittedToHOD))

		result = &SubmitResult{CaseID: current.FormID, Status: current.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.SecurityEvent(security.EventCaseFinalSubmit, employeeID, "application", result.CaseID, "", nil)
	}
	return result, nil
}

// normalizeObject decodes a raw payload to a JSON object and re-encodes it in
// canonical form. Empty input returns (nil, nil): absence is for the caller
// to judge.
func normalizeObject(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	obj, err := models.DecodeObject(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}
