package handler

import (
	"net/http"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// JobHandler handles HTTP requests for jobs converted from estimates
type JobHandler struct {
	jobService *service.JobService
	logger     *zap.Logger
}

// NewJobHandler creates a new job handler instance
func NewJobHandler(jobService *service.JobService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		logger:     logger,
	}
}

// List godoc
// @Summary List jobs
// @Tags Jobs
// @Produce json
// @Param sortBy query string false "Sort field" Enums(name, status, startDate, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {array} domain.JobDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /jobs [get]
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobService.List(r.Context(), sortFromQuery(r))
	if err != nil {
		handleServiceError(w, h.logger, err, "list jobs")
		return
	}
	respondJSON(w, http.StatusOK, jobs)
}

// GetByID godoc
// @Summary Get a job with budgets, costs and variance
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID" format(uuid)
// @Success 200 {object} domain.JobDetailDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /jobs/{id} [get]
func (h *JobHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	job, err := h.jobService.GetDetail(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get job")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// AddCost godoc
// @Summary Record an actual cost against a job
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID" format(uuid)
// @Param request body domain.AddJobCostRequest true "Cost"
// @Success 201 {object} domain.JobCostDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /jobs/{id}/costs [post]
func (h *JobHandler) AddCost(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.AddJobCostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cost, err := h.jobService.AddCost(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "add job cost")
		return
	}
	respondJSON(w, http.StatusCreated, cost)
}

// UpdateStatus godoc
// @Summary Change the status of a job
// @Description planned -> active -> completed; any non-terminal status may move to cancelled
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID" format(uuid)
// @Param request body domain.UpdateJobStatusRequest true "New status"
// @Success 200 {object} domain.JobDTO
// @Failure 400 {object} domain.APIError "Invalid status or transition"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /jobs/{id}/status [patch]
func (h *JobHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateJobStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	job, err := h.jobService.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update job status")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// CostReport godoc
// @Summary Download the job cost report
// @Description Workbook with one row per job and one sheet of cost rows
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /reports/job-costs [get]
func (h *JobHandler) CostReport(w http.ResponseWriter, r *http.Request) {
	filename, content, err := h.jobService.CostReport(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "build job cost report")
		return
	}
	respondFile(w, xlsxContentType, filename, content)
}
