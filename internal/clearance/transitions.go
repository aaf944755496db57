package clearance

import (
	"context"
	"fmt"

	"github.com/avissapr/nodues/internal/models"
	"github.com/avissapr/nodues/internal/notify"
	"github.com/avissapr/nodues/internal/security"
	"github.com/avissapr/nodues/internal/store"
)

// IT processing actions.
const (
	ITActionCompleted = "completed"
	ITActionRejected  = "rejected"
)

// AssignForms replaces the sub-form descriptors attached to a case. HOD/IT
// use this after the initial review to tell the employee which forms to
// complete.
func (s *Service) AssignForms(ctx context.Context, caseID string, forms []models.AssignedForm) error {
	return s.mutateCase(ctx, caseID, "assign forms", func(c *models.Case) error {
		if c.Status.IsTerminal() {
			return &ValidationError{Field: "status", Message: fmt.Sprintf("case %s is already %q", caseID, c.Status)}
		}
		c.AssignedForms = forms
		c.LastUpdated = s.now()
		return nil
	})
}

// ApproveHOD records the HOD sign-off and moves the case to
// "Submitted to IT".
func (s *Service) ApproveHOD(ctx context.Context, caseID, approver string) error {
	var employeeID string
	err := s.mutateCase(ctx, caseID, "HOD approval", func(c *models.Case) error {
		if !c.Status.CanTransitionTo(models.StatusSubmittedToIT) {
			return &ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("case %s cannot be HOD-approved from status %q", caseID, c.Status),
			}
		}
		now := s.now()
		c.HODApproval = &models.HODApproval{ApprovedBy: approver, ApprovedAt: now}
		c.Status = models.StatusSubmittedToIT
		c.LastUpdated = now
		employeeID = c.EmployeeID
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.CaseTransition(string(models.StatusSubmittedToIT))
	if s.logger != nil {
		s.logger.SecurityEvent(security.EventHODApprove, approver, "application", caseID, "", nil)
	}
	s.publish(notify.Event{
		EmployeeID: employeeID,
		CaseID:     caseID,
		Type:       notify.EventHODApproved,
		Title:      "Application Approved by HOD",
		Message:    "Your no-dues application has been approved and forwarded to IT.",
	})
	return nil
}

// ProcessIT records the final IT action. Action "completed" moves the case to
// IT Completed, generates certificates and archives the case; "rejected"
// terminates it as rejected.
//
// Certificate generation runs outside the collection lock: the recorded IT
// decision persists even if generation subsequently fails, and the failure is
// surfaced to the caller as a server error.
func (s *Service) ProcessIT(ctx context.Context, caseID, action, processor, remarks string) error {
	if action != ITActionCompleted && action != ITActionRejected {
		return &ValidationError{Field: "action", Message: fmt.Sprintf("unknown IT action %q", action)}
	}

	var snapshot models.Case
	err := s.mutateCase(ctx, caseID, "IT processing", func(c *models.Case) error {
		if c.Status.IsTerminal() {
			return &ValidationError{Field: "status", Message: fmt.Sprintf("case %s is already %q", caseID, c.Status)}
		}
		if action == ITActionCompleted && !c.Status.CanTransitionTo(models.StatusITCompleted) {
			return &ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("case %s cannot be completed from status %q", caseID, c.Status),
			}
		}

		now := s.now()
		c.ITProcessing = &models.ITProcessing{
			Action:      action,
			ProcessedBy: processor,
			ProcessedAt: now,
			Remarks:     remarks,
		}
		if action == ITActionCompleted {
			c.Status = models.StatusITCompleted
		} else {
			c.Status = models.StatusRejected
			c.RejectionReason = remarks
			c.RejectedAt = &now
			c.CanSubmitNew = true
		}
		c.LastUpdated = now
		snapshot = *c
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.CaseTransition(string(snapshot.Status))
	if s.logger != nil {
		s.logger.SecurityEvent(security.EventITProcess, processor, "application", caseID,
			"", map[string]any{"action": action})
	}

	if action == ITActionRejected {
		if err := s.archive(ctx, snapshot); err != nil {
			return err
		}
		s.publish(notify.Event{
			EmployeeID: snapshot.EmployeeID,
			CaseID:     caseID,
			Type:       notify.EventApplicationRejected,
			Title:      "Application Rejected",
			Message:    "Your no-dues application was rejected during IT processing.",
			Details:    map[string]any{"reason": remarks},
		})
		return nil
	}

	return s.completeCase(ctx, snapshot)
}

// completeCase runs the certificate pipeline for a just-completed case,
// attaches the outcomes to the record, archives it, and notifies the
// employee.
func (s *Service) completeCase(ctx context.Context, snapshot models.Case) error {
	succeeded, failed, genErr := s.certs.Generate(ctx, snapshot.FormID, snapshot.FormResponses)
	for range succeeded {
		s.metrics.Certificate("success")
	}
	for range failed {
		s.metrics.Certificate("failed")
	}

	// Both successes and failures are recorded on the case; failed artifact
	// descriptors are never silently dropped.
	outcomes := append(append([]models.Certificate{}, succeeded...), failed...)
	if len(outcomes) > 0 {
		attachErr := s.mutateCase(ctx, snapshot.FormID, "attach certificates", func(c *models.Case) error {
			c.Certificates = append(c.Certificates, outcomes...)
			c.LastUpdated = s.now()
			snapshot = *c
			return nil
		})
		if attachErr != nil {
			return attachErr
		}
	}

	if genErr != nil {
		if s.logger != nil {
			s.logger.Error("certificate generation failed for "+snapshot.FormID, genErr)
		}
		return fmt.Errorf("certificate generation for case %s: %w", snapshot.FormID, genErr)
	}

	if err := s.archive(ctx, snapshot); err != nil {
		return err
	}

	s.publish(notify.Event{
		EmployeeID: snapshot.EmployeeID,
		CaseID:     snapshot.FormID,
		Type:       notify.EventCertificatesReady,
		Title:      "Clearance Certificates Ready",
		Message:    "Your no-dues clearance is complete; certificates are available for download.",
		Details:    map[string]any{"certificates": len(succeeded)},
	})
	return nil
}

// Reject terminates an active case with the given reason. The employee may
// submit a new application afterwards.
func (s *Service) Reject(ctx context.Context, caseID, reason, rejectedBy string) error {
	if reason == "" {
		return &ValidationError{Field: "reason", Message: "is required"}
	}

	var snapshot models.Case
	err := s.mutateCase(ctx, caseID, "rejection", func(c *models.Case) error {
		if c.Status.IsTerminal() {
			return &ValidationError{Field: "status", Message: fmt.Sprintf("case %s is already %q", caseID, c.Status)}
		}
		now := s.now()
		c.Status = models.StatusRejected
		c.RejectionReason = reason
		c.RejectedAt = &now
		c.CanSubmitNew = true
		c.LastUpdated = now
		snapshot = *c
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.CaseTransition(string(models.StatusRejected))
	if s.logger != nil {
		s.logger.SecurityEvent(security.EventCaseReject, rejectedBy, "application", caseID,
			"", map[string]any{"reason": reason})
	}

	if err := s.archive(ctx, snapshot); err != nil {
		return err
	}

	s.publish(notify.Event{
		EmployeeID: snapshot.EmployeeID,
		CaseID:     caseID,
		Type:       notify.EventApplicationRejected,
		Title:      "Application Rejected",
		Message:    "Your no-dues application has been rejected. You may submit a new application.",
		Details:    map[string]any{"reason": reason},
	})
	return nil
}

// mutateCase runs fn against the case identified by caseID inside the
// applications lock and persists the collection. Validation errors from fn
// leave the stored record untouched; Save is the sole commit point.
func (s *Service) mutateCase(ctx context.Context, caseID, op string, fn func(*models.Case) error) error {
	return s.store.WithLock(store.CollectionApplications, func() error {
		var cases []models.Case
		if err := s.store.Load(ctx, store.CollectionApplications, &cases); err != nil {
			s.metrics.StoreOp("load", "error")
			return &StorageError{Op: op, Err: err}
		}

		idx := -1
		for i := range cases {
			if cases[i].FormID == caseID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &NotFoundError{Resource: "application", ID: caseID}
		}

		if err := fn(&cases[idx]); err != nil {
			return err
		}

		if err := s.store.Save(ctx, store.CollectionApplications, cases); err != nil {
			s.metrics.StoreOp("save", "error")
			return &StorageError{Op: op, Err: err}
		}
		s.metrics.StoreOp("save", "ok")
		return nil
	})
}

// publish fires a notification without ever failing the caller.
func (s *Service) publish(e notify.Event) {
	if s.notifier != nil {
		s.notifier.Publish(e)
	}
}
