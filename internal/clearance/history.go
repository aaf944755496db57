package clearance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avissapr/nodues/internal/models"
	"github.com/avissapr/nodues/internal/security"
	"github.com/avissapr/nodues/internal/store"
)

// archive appends an immutable snapshot of a terminal case to the history
// collection. The case itself stays in the applications collection; history
// is an additional, append-only record, not a move.
func (s *Service) archive(ctx context.Context, c models.Case) error {
	if !c.Status.IsTerminal() {
		return fmt.Errorf("cannot archive case %s in non-terminal status %q", c.FormID, c.Status)
	}

	entry := models.HistoryEntry{
		HistoryID:      "HIST-" + s.newID(),
		FormID:         c.FormID,
		EmployeeID:     c.EmployeeID,
		Name:           c.Name,
		Department:     c.Department,
		NoDuesType:     c.NoDuesType,
		FinalStatus:    c.Status,
		SubmissionDate: c.SubmissionDate,
		CompletedAt:    completionTime(c),
		PreservedData: models.PreservedData{
			Certificates:  cloneCertificates(c.Certificates),
			HODApproval:   cloneJSON(c.HODApproval),
			ITProcessing:  cloneJSON(c.ITProcessing),
			AssignedForms: append([]models.AssignedForm{}, c.AssignedForms...),
			FormResponses: cloneResponses(c.FormResponses),
		},
	}

	err := s.store.WithLock(store.CollectionHistory, func() error {
		var entries []models.HistoryEntry
		if err := s.store.Load(ctx, store.CollectionHistory, &entries); err != nil {
			s.metrics.StoreOp("load", "error")
			return &StorageError{Op: "archive", Err: err}
		}
		entries = append(entries, entry)
		if err := s.store.Save(ctx, store.CollectionHistory, entries); err != nil {
			s.metrics.StoreOp("save", "error")
			return &StorageError{Op: "archive", Err: err}
		}
		s.metrics.StoreOp("save", "ok")
		return nil
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.SecurityEvent(security.EventCaseArchived, c.EmployeeID, "history", entry.HistoryID,
			"", map[string]any{"formId": c.FormID, "finalStatus": string(c.Status)})
	}
	return nil
}

// completionTime picks the moment the case became terminal.
func completionTime(c models.Case) time.Time {
	if c.RejectedAt != nil {
		return *c.RejectedAt
	}
	if c.ITProcessing != nil {
		return c.ITProcessing.ProcessedAt
	}
	return c.LastUpdated
}

func cloneCertificates(in []models.Certificate) []models.Certificate {
	out := make([]models.Certificate, len(in))
	copy(out, in)
	return out
}

// cloneJSON deep-copies a pointer record via a marshal round trip so the
// snapshot cannot alias the live case.
func cloneJSON[T any](in *T) *T {
	if in == nil {
		return nil
	}
	raw, err := json.Marshal(in)
	if err != nil {
		cp := *in
		return &cp
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		cp := *in
		return &cp
	}
	return out
}

func cloneResponses(in map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = append(json.RawMessage{}, v...)
	}
	return out
}
