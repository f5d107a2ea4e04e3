package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/pipeline"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"github.com/mcsmartbytes/job-sense/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	h := newAPIHarness(t)

	w := h.rawGet("/health")
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "OK", w.Body.String())

	w = h.rawGet("/health/db")
	requireStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w = h.rawGet("/health/ready")
	requireStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), `"ready"`)
}

func TestAuthHandler(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(http.MethodPost, "/auth/register", "", domain.RegisterRequest{Email: "Crew@Example.com", Password: "longenough"})
	requireStatus(t, w, http.StatusCreated)
	assert.True(t, decode[domain.OKResponse](t, w).OK)

	w = h.do(http.MethodPost, "/auth/register", "", domain.RegisterRequest{Email: "crew@example.com", Password: "longenough"})
	requireStatus(t, w, http.StatusConflict)

	w = h.do(http.MethodPost, "/auth/register", "", domain.RegisterRequest{Email: "short@example.com", Password: "short"})
	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, apiError(t, w).Errors, "password")

	// Unverified accounts cannot log in
	w = h.do(http.MethodPost, "/auth/login", "", domain.LoginRequest{Email: "crew@example.com", Password: "longenough"})
	requireStatus(t, w, http.StatusUnauthorized)
	assert.Equal(t, "Email not verified", apiError(t, w).Detail)

	w = h.do(http.MethodPost, "/auth/login", "", domain.LoginRequest{Email: "crew@example.com", Password: "wrong-password"})
	requireStatus(t, w, http.StatusUnauthorized)
	assert.Equal(t, "Invalid email or password", apiError(t, w).Detail)

	w = h.do(http.MethodPost, "/auth/verify", "", domain.VerifyEmailRequest{Token: strings.Repeat("ab", 32)})
	requireStatus(t, w, http.StatusBadRequest)

	// Unknown addresses are not revealed
	w = h.do(http.MethodPost, "/auth/password-reset/request", "", domain.PasswordResetRequestRequest{Email: "nobody@example.com"})
	requireStatus(t, w, http.StatusOK)
}

func TestProfileHandler(t *testing.T) {
	h := newAPIHarness(t)
	_, token := h.newUser("owner@example.com")

	requireStatus(t, h.do(http.MethodGet, "/profile", "", nil), http.StatusUnauthorized)

	w := h.do(http.MethodGet, "/profile", token, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "owner@example.com", decode[domain.UserDTO](t, w).Email)

	company := "Blacktop Bros"
	w = h.do(http.MethodPut, "/profile", token, domain.UpdateProfileRequest{CompanyName: &company})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, company, decode[domain.UserDTO](t, w).CompanyName)
}

func TestRequestDecoding(t *testing.T) {
	h := newAPIHarness(t)
	_, token := h.newUser("owner@example.com")

	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"empty body", "", "Request body is empty"},
		{"malformed", `{"name":`, ""},
		{"unknown field", `{"name":"Lot A","color":"red"}`, `Unknown field "color"`},
		{"wrong type", `{"name":42}`, `Invalid value for field "name"`},
		{"two objects", `{"name":"a"}{"name":"b"}`, "Request body must contain a single JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodPost, "/sites", token, tt.body)
			requireStatus(t, w, http.StatusBadRequest)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, apiError(t, w).Detail)
			}
		})
	}

	w := h.do(http.MethodPost, "/sites", token, `{"address":"1 Main St"}`)
	requireStatus(t, w, http.StatusBadRequest)
	problem := apiError(t, w)
	assert.Equal(t, domain.ErrorTypeValidation, problem.Type)
	assert.Equal(t, "name is required", problem.Errors["name"])

	requireStatus(t, h.do(http.MethodGet, "/sites/not-a-uuid", token, nil), http.StatusBadRequest)
}

func TestSiteHandler(t *testing.T) {
	h := newAPIHarness(t)
	_, owner := h.newUser("owner@example.com")
	_, other := h.newUser("other@example.com")

	w := h.do(http.MethodPost, "/sites", owner, domain.CreateSiteRequest{Name: "Mall Lot", Address: "9 Commerce Way"})
	requireStatus(t, w, http.StatusCreated)
	site := decode[domain.SiteDTO](t, w)
	assert.Equal(t, "/api/v1/sites/"+site.ID.String(), w.Header().Get("Location"))

	// Another user's site does not exist for them
	requireStatus(t, h.do(http.MethodGet, "/sites/"+site.ID.String(), other, nil), http.StatusNotFound)
	requireStatus(t, h.do(http.MethodDelete, "/sites/"+site.ID.String(), other, nil), http.StatusNotFound)

	w = h.do(http.MethodPut, "/sites/"+site.ID.String()+"/objects", owner, `{"features":[
		{"objectType":"parking","geometry":{"type":"Polygon","coordinates":[]},"measurements":{"area":1200}},
		{"geometry":{"type":"LineString","coordinates":[]}}
	]}`)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, domain.ReplaceSiteObjectsResponse{OK: true, Count: 2}, decode[domain.ReplaceSiteObjectsResponse](t, w))

	w = h.do(http.MethodGet, "/sites/"+site.ID.String()+"/objects", owner, nil)
	requireStatus(t, w, http.StatusOK)
	objects := decode[[]domain.SiteObjectDTO](t, w)
	require.Len(t, objects, 2)

	w = h.do(http.MethodGet, "/sites", owner, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]domain.SiteDTO](t, w), 1)

	w = h.do(http.MethodGet, "/sites", other, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Empty(t, decode[[]domain.SiteDTO](t, w))

	requireStatus(t, h.do(http.MethodDelete, "/sites/"+site.ID.String(), owner, nil), http.StatusNoContent)
	requireStatus(t, h.do(http.MethodGet, "/sites/"+site.ID.String(), owner, nil), http.StatusNotFound)
}

func TestEstimateAndJobHandlers(t *testing.T) {
	h := newAPIHarness(t)
	_, token := h.newUser("owner@example.com")

	w := h.do(http.MethodGet, "/cost-codes", token, nil)
	requireStatus(t, w, http.StatusOK)
	codes := decode[[]domain.CostCodeDTO](t, w)
	require.Len(t, codes, len(service.DefaultCostCodes))

	site := decode[domain.SiteDTO](t, h.do(http.MethodPost, "/sites", token, domain.CreateSiteRequest{Name: "Depot"}))

	w = h.do(http.MethodPost, "/estimates", token, domain.CreateEstimateRequest{SiteID: site.ID})
	requireStatus(t, w, http.StatusCreated)
	estimate := decode[domain.EstimateDTO](t, w)
	assert.Equal(t, "Depot Estimate", estimate.Title)
	base := "/estimates/" + estimate.ID.String()

	w = h.do(http.MethodPost, base+"/line-items", token, domain.AddLineItemRequest{
		Description: "Sealcoat", Quantity: "0", Unit: "sqft", UnitPrice: "0.25",
	})
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Must be a quantity greater than zero with at most 3 decimals", apiError(t, w).Errors["quantity"])

	w = h.do(http.MethodPost, base+"/line-items", token, domain.AddLineItemRequest{
		Description: "Sealcoat", Quantity: "3", Unit: "sqft", UnitPrice: "10.005",
	})
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Must be an amount greater than zero with at most 2 decimals", apiError(t, w).Errors["unitPrice"])

	w = h.do(http.MethodPost, base+"/line-items", token, domain.AddLineItemRequest{
		Description: "Sealcoat", Quantity: "1000", Unit: "sqft", UnitPrice: "0.25", CostCodeID: &codes[0].ID,
	})
	requireStatus(t, w, http.StatusCreated)
	assert.Equal(t, "250.00", decode[domain.EstimateDTO](t, w).Total)

	w = h.do(http.MethodGet, base+"/pdf", token, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "EST-")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w = h.do(http.MethodPost, base+"/convert", token, nil)
	requireStatus(t, w, http.StatusCreated)
	job := decode[domain.JobDetailDTO](t, w)
	assert.Equal(t, domain.JobStatusActive, job.Status)
	require.Len(t, job.Budgets, 1)

	requireStatus(t, h.do(http.MethodPost, base+"/convert", token, nil), http.StatusConflict)
	requireStatus(t, h.do(http.MethodDelete, base, token, nil), http.StatusConflict)

	jobPath := "/jobs/" + job.ID.String()
	w = h.do(http.MethodPost, jobPath+"/costs", token, domain.AddJobCostRequest{Amount: "0.001", Description: "Rounding"})
	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, apiError(t, w).Errors, "amount")

	w = h.do(http.MethodPost, jobPath+"/costs", token, domain.AddJobCostRequest{Amount: "300.00", Description: "Sealer drums"})
	requireStatus(t, w, http.StatusCreated)

	w = h.do(http.MethodGet, jobPath, token, nil)
	requireStatus(t, w, http.StatusOK)
	detail := decode[domain.JobDetailDTO](t, w)
	assert.Equal(t, "250.00", detail.Variance.BudgetTotal)
	assert.Equal(t, "300.00", detail.Variance.ActualTotal)
	assert.True(t, detail.Variance.OverBudget)

	w = h.do(http.MethodPatch, jobPath+"/status", token, domain.UpdateJobStatusRequest{Status: domain.JobStatusPlanned})
	requireStatus(t, w, http.StatusBadRequest)

	w = h.do(http.MethodPatch, jobPath+"/status", token, domain.UpdateJobStatusRequest{Status: domain.JobStatusCompleted})
	requireStatus(t, w, http.StatusOK)
	assert.NotNil(t, decode[domain.JobDTO](t, w).EndDate)

	w = h.do(http.MethodGet, "/reports/job-costs", token, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))
}

func TestPipelineAndTrackerHandlers(t *testing.T) {
	h := newAPIHarness(t)
	_, token := h.newUser("owner@example.com")
	_, other := h.newUser("other@example.com")

	w := h.do(http.MethodPost, "/pipeline/bids", token, pipeline.BidInput{Name: "School resurfacing", Tags: []string{"public"}})
	requireStatus(t, w, http.StatusCreated)
	bid := decode[pipeline.Bid](t, w)
	assert.Equal(t, pipeline.StageLead, bid.Stage)
	assert.Equal(t, pipeline.PriorityMedium, bid.Priority)

	requireStatus(t, h.do(http.MethodGet, "/pipeline/bids/"+bid.ID, other, nil), http.StatusNotFound)
	requireStatus(t, h.do(http.MethodPatch, "/pipeline/bids/"+bid.ID, token, `{"stage":"closing"}`), http.StatusBadRequest)

	// Only won bids can be estimated
	requireStatus(t, h.do(http.MethodPost, "/pipeline/bids/"+bid.ID+"/estimate", token, nil), http.StatusBadRequest)

	w = h.do(http.MethodGet, "/pipeline/board", token, nil)
	requireStatus(t, w, http.StatusOK)
	board := decode[[]pipeline.BoardColumn](t, w)
	require.Len(t, board, len(pipeline.Stages))
	assert.Equal(t, 1, board[0].Count)

	w = h.do(http.MethodPut, "/pipeline/active", token, map[string]string{"bidId": bid.ID})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, bid.ID, decode[pipeline.Bid](t, w).ID)

	w = h.do(http.MethodPut, "/pipeline/active", token, `{"bidId":null}`)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "null", strings.TrimSpace(w.Body.String()))

	w = h.do(http.MethodPatch, "/pipeline/filters", token, `{"search":"hospital"}`)
	requireStatus(t, w, http.StatusOK)
	w = h.do(http.MethodGet, "/pipeline/bids", token, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Empty(t, decode[[]pipeline.Bid](t, w))
	requireStatus(t, h.do(http.MethodDelete, "/pipeline/filters", token, nil), http.StatusNoContent)

	convertPath := "/pipeline/bids/" + bid.ID + "/convert"
	w = h.do(http.MethodPost, convertPath, token, `{"lineItems":[{"serviceName":"Sealcoat","unit":"sqft","quantity":"2","rate":"50","subtotal":"999"}]}`)
	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, apiError(t, w).Detail, "subtotal")

	w = h.do(http.MethodPost, convertPath, token, `{"lineItems":[{"serviceName":"Sealcoat","unit":"sqft","quantity":"-2","rate":"50"}]}`)
	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, apiError(t, w).Errors, "quantity")

	w = h.do(http.MethodPost, convertPath, token, `{"lineItems":[{"serviceName":"","unit":"sqft","quantity":"2","rate":"50"}]}`)
	requireStatus(t, w, http.StatusBadRequest)

	w = h.do(http.MethodGet, "/tracker/jobs", token, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Empty(t, decode[[]tracker.Job](t, w), "rejected conversions create no job")

	w = h.do(http.MethodPost, convertPath, token, nil)
	requireStatus(t, w, http.StatusCreated)
	job := decode[tracker.Job](t, w)
	assert.Equal(t, domain.JobStatusPlanned, job.Status)
	jobPath := "/tracker/jobs/" + job.ID

	requireStatus(t, h.do(http.MethodGet, "/tracker/jobs?status=paused", token, nil), http.StatusBadRequest)
	w = h.do(http.MethodGet, "/tracker/jobs?status=planned", token, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]tracker.Job](t, w), 1)

	w = h.do(http.MethodPost, jobPath+"/phases", token, tracker.PhaseInput{Name: "Milling"})
	requireStatus(t, w, http.StatusCreated)
	phase := decode[tracker.Phase](t, w)

	w = h.do(http.MethodPost, jobPath+"/tasks", token, tracker.TaskInput{Name: "Mark utilities", PhaseID: phase.ID})
	requireStatus(t, w, http.StatusCreated)
	task := decode[tracker.Task](t, w)

	requireStatus(t, h.do(http.MethodPatch, jobPath+"/tasks/"+task.ID, token, `{"status":"finished"}`), http.StatusBadRequest)
	w = h.do(http.MethodPatch, jobPath+"/tasks/"+task.ID, token, `{"status":"done"}`)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, tracker.TaskStatusDone, decode[tracker.Task](t, w).Status)

	w = h.do(http.MethodPost, jobPath+"/materials", token, tracker.MaterialInput{Name: "Crack filler"})
	requireStatus(t, w, http.StatusCreated)
	material := decode[tracker.Material](t, w)
	requireStatus(t, h.do(http.MethodDelete, jobPath+"/materials/"+material.ID, token, nil), http.StatusNoContent)

	// planned -> completed skips active
	requireStatus(t, h.do(http.MethodPatch, jobPath, token, `{"status":"completed"}`), http.StatusBadRequest)
	requireStatus(t, h.do(http.MethodPatch, jobPath, token, `{"status":"active"}`), http.StatusOK)

	w = h.do(http.MethodGet, "/tracker/stats", token, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, 1, decode[tracker.Stats](t, w).ActiveJobs)

	requireStatus(t, h.do(http.MethodDelete, jobPath+"/phases/"+phase.ID, token, nil), http.StatusNoContent)
	requireStatus(t, h.do(http.MethodDelete, jobPath, token, nil), http.StatusNoContent)
	requireStatus(t, h.do(http.MethodGet, jobPath, token, nil), http.StatusNotFound)
}
