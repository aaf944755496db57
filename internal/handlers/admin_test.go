package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avissapr/nodues/internal/clearance"
	"github.com/avissapr/nodues/internal/models"
	"github.com/avissapr/nodues/internal/security"
	"github.com/avissapr/nodues/internal/store"
)

// passthroughGenerator satisfies the generator interface with canned output.
type passthroughGenerator struct{}

func (passthroughGenerator) Generate(_ context.Context, caseID string, responses map[string]json.RawMessage) ([]models.Certificate, []models.Certificate, error) {
	var succeeded []models.Certificate
	for key := range responses {
		succeeded = append(succeeded, models.Certificate{
			ID: caseID + "-" + key, CaseID: caseID, FormType: key, Status: models.CertificateSuccess,
		})
	}
	return succeeded, nil, nil
}

type adminApp struct {
	app *fiber.App
	svc *clearance.Service
}

func newAdminApp(t *testing.T, role string) *adminApp {
	t.Helper()

	memory := store.NewMemoryStore()
	svc := clearance.NewService(memory, passthroughGenerator{}, nil, nil, nil)
	secCfg := security.DefaultSecurityConfig()
	handler := NewAdminHandler(svc, security.NewValidationService(secCfg), nil)

	app := fiber.New()
	api := app.Group("/api", stubAuth("ADMIN1", role))
	api.Get("/admin/applications", handler.ListApplications)
	api.Get("/admin/applications/:id", handler.GetApplication)
	api.Post("/admin/applications/:id/forms", handler.AssignForms)
	api.Post("/admin/applications/:id/reject", handler.Reject)
	api.Post("/hod/applications/:id/approve", handler.ApproveHOD)
	api.Post("/it/applications/:id/process", handler.ProcessIT)

	return &adminApp{app: app, svc: svc}
}

// submitCase files a case directly through the service.
func (a *adminApp) submitCase(t *testing.T, employeeID string) string {
	t.Helper()
	result, err := a.svc.Submit(context.Background(), clearance.SubmitRequest{
		Name:            "Asha Verma",
		EmployeeID:      employeeID,
		Email:           "asha@example.gov",
		Department:      "Records",
		NoDuesType:      "transfer",
		OrderLetterFile: "order.pdf",
	})
	require.NoError(t, err)
	return result.CaseID
}

func (a *adminApp) forwardToIT(t *testing.T, employeeID string) string {
	t.Helper()
	caseID := a.submitCase(t, employeeID)
	obj := json.RawMessage(`{"done":true}`)
	_, err := a.svc.FinalSubmit(context.Background(), employeeID, clearance.FinalSubmitRequest{
		Disposal: obj, EFile: obj, Form365Transfer: obj,
	})
	require.NoError(t, err)
	require.NoError(t, a.svc.ApproveHOD(context.Background(), caseID, "Dr. Rao"))
	return caseID
}

func TestListApplicationsEndpoint(t *testing.T) {
	a := newAdminApp(t, models.RoleHOD)
	a.submitCase(t, "E100")
	a.submitCase(t, "E200")

	resp, err := a.app.Test(httptest.NewRequest("GET", "/api/admin/applications", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Len(t, body["applications"], 2)

	t.Run("status filter", func(t *testing.T) {
		resp, err := a.app.Test(httptest.NewRequest("GET", "/api/admin/applications?status=IT+Completed", nil))
		require.NoError(t, err)
		body := decodeBody(t, resp)
		assert.Empty(t, body["applications"])
	})
}

func TestGetApplicationEndpoint(t *testing.T) {
	a := newAdminApp(t, models.RoleHOD)
	caseID := a.submitCase(t, "E100")

	resp, err := a.app.Test(httptest.NewRequest("GET", "/api/admin/applications/"+caseID, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, caseID, decodeBody(t, resp)["formId"])

	resp, err = a.app.Test(httptest.NewRequest("GET", "/api/admin/applications/NOPE", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAssignFormsEndpoint(t *testing.T) {
	a := newAdminApp(t, models.RoleHOD)
	caseID := a.submitCase(t, "E100")

	resp, err := a.app.Test(jsonRequest("POST", "/api/admin/applications/"+caseID+"/forms",
		map[string]any{"forms": []map[string]string{{"title": "Disposal Form", "path": "/forms/disposal"}}}))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	c, err := a.svc.CaseByID(context.Background(), caseID)
	require.NoError(t, err)
	require.Len(t, c.AssignedForms, 1)
	assert.Equal(t, "Disposal Form", c.AssignedForms[0].Title)
}

func TestApproveEndpoint(t *testing.T) {
	a := newAdminApp(t, models.RoleHOD)
	caseID := a.submitCase(t, "E100")
	obj := json.RawMessage(`{"done":true}`)
	_, err := a.svc.FinalSubmit(context.Background(), "E100", clearance.FinalSubmitRequest{
		Disposal: obj, EFile: obj, Form365Disposal: obj,
	})
	require.NoError(t, err)

	resp, err := a.app.Test(jsonRequest("POST", "/api/hod/applications/"+caseID+"/approve", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	c, err := a.svc.CaseByID(context.Background(), caseID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmittedToIT, c.Status)
	require.NotNil(t, c.HODApproval)
	assert.Equal(t, "Test User", c.HODApproval.ApprovedBy)

	t.Run("pending case cannot be approved", func(t *testing.T) {
		caseID := a.submitCase(t, "E300")
		resp, err := a.app.Test(jsonRequest("POST", "/api/hod/applications/"+caseID+"/approve", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestProcessEndpoint(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		a := newAdminApp(t, models.RoleIT)
		caseID := a.forwardToIT(t, "E100")

		resp, err := a.app.Test(jsonRequest("POST", "/api/it/applications/"+caseID+"/process",
			map[string]any{"action": "completed", "remarks": "all clear"}))

		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		c, err := a.svc.CaseByID(context.Background(), caseID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusITCompleted, c.Status)
		assert.Len(t, c.Certificates, 3)
	})

	t.Run("rejected", func(t *testing.T) {
		a := newAdminApp(t, models.RoleIT)
		caseID := a.forwardToIT(t, "E100")

		resp, err := a.app.Test(jsonRequest("POST", "/api/it/applications/"+caseID+"/process",
			map[string]any{"action": "rejected", "remarks": "dues outstanding"}))

		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		c, err := a.svc.CaseByID(context.Background(), caseID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, c.Status)
	})

	t.Run("unknown action", func(t *testing.T) {
		a := newAdminApp(t, models.RoleIT)
		caseID := a.forwardToIT(t, "E100")

		resp, err := a.app.Test(jsonRequest("POST", "/api/it/applications/"+caseID+"/process",
			map[string]any{"action": "deferred"}))

		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestRejectEndpoint(t *testing.T) {
	a := newAdminApp(t, models.RoleHOD)
	caseID := a.submitCase(t, "E100")

	t.Run("reason required", func(t *testing.T) {
		resp, err := a.app.Test(jsonRequest("POST", "/api/admin/applications/"+caseID+"/reject",
			map[string]any{"reason": ""}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects with reason", func(t *testing.T) {
		resp, err := a.app.Test(jsonRequest("POST", "/api/admin/applications/"+caseID+"/reject",
			map[string]any{"reason": "duplicate request"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		c, err := a.svc.CaseByID(context.Background(), caseID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, c.Status)
		assert.Equal(t, "duplicate request", c.RejectionReason)
	})
}
