package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"github.com/mcsmartbytes/job-sense/internal/tracker"
	"go.uber.org/zap"
)

// SetActiveJobRequest selects a tracker job; a null jobId clears the selection
type SetActiveJobRequest struct {
	JobID *string `json:"jobId"`
}

// TrackerHandler handles the job tracker of the authenticated user
type TrackerHandler struct {
	trackerService *service.TrackerService
	logger         *zap.Logger
}

func NewTrackerHandler(trackerService *service.TrackerService, logger *zap.Logger) *TrackerHandler {
	return &TrackerHandler{
		trackerService: trackerService,
		logger:         logger,
	}
}

// ListJobs godoc
// @Summary List tracker jobs
// @Tags Tracker
// @Produce json
// @Param status query string false "Only jobs in this status" Enums(planned, active, completed, cancelled)
// @Success 200 {array} tracker.Job
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs [get]
func (h *TrackerHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.trackerService.ListJobs(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, h.logger, err, "list tracker jobs")
		return
	}
	respondJSON(w, http.StatusOK, jobs)
}

// GetJob godoc
// @Summary Get a tracker job
// @Tags Tracker
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} tracker.Job
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs/{id} [get]
func (h *TrackerHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.trackerService.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err, "get tracker job")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// UpdateJob godoc
// @Summary Update a tracker job
// @Description Status changes follow the job transition table
// @Tags Tracker
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param request body tracker.JobUpdate true "Fields to change"
// @Success 200 {object} tracker.Job
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs/{id} [patch]
func (h *TrackerHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	var req tracker.JobUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	job, err := h.trackerService.UpdateJob(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update tracker job")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// DeleteJob godoc
// @Summary Delete a tracker job
// @Tags Tracker
// @Param id path string true "Job ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs/{id} [delete]
func (h *TrackerHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.trackerService.DeleteJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.logger, err, "delete tracker job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats godoc
// @Summary Get tracker statistics
// @Tags Tracker
// @Produce json
// @Success 200 {object} tracker.Stats
// @Security BearerAuth
// @Router /tracker/stats [get]
func (h *TrackerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.trackerService.Stats(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get tracker stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ActiveJob godoc
// @Summary Get the selected tracker job
// @Tags Tracker
// @Produce json
// @Success 200 {object} tracker.Job
// @Security BearerAuth
// @Router /tracker/active [get]
func (h *TrackerHandler) ActiveJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.trackerService.ActiveJob(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get active job")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// SetActiveJob godoc
// @Summary Select a tracker job
// @Tags Tracker
// @Accept json
// @Produce json
// @Param request body SetActiveJobRequest true "Job to select, or null"
// @Success 200 {object} tracker.Job
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/active [put]
func (h *TrackerHandler) SetActiveJob(w http.ResponseWriter, r *http.Request) {
	var req SetActiveJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := ""
	if req.JobID != nil {
		id = *req.JobID
	}

	job, err := h.trackerService.SetActiveJob(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "set active job")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// AddPhase godoc
// @Summary Add a phase to a tracker job
// @Tags Tracker
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param request body tracker.PhaseInput true "Phase"
// @Success 201 {object} tracker.Phase
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs/{id}/phases [post]
func (h *TrackerHandler) AddPhase(w http.ResponseWriter, r *http.Request) {
	var req tracker.PhaseInput
	if !decodeJSON(w, r, &req) {
		return
	}

	phase, err := h.trackerService.AddPhase(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "add phase")
		return
	}
	respondJSON(w, http.StatusCreated, phase)
}

// UpdatePhase godoc
// @Summary Update a phase
// @Tags Tracker
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param phaseId path string true "Phase ID"
// @Param request body tracker.PhaseUpdate true "Fields to change"
// @Success 200 {object} tracker.Phase
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs/{id}/phases/{phaseId} [patch]
func (h *TrackerHandler) UpdatePhase(w http.ResponseWriter, r *http.Request) {
	var req tracker.PhaseUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	phase, err := h.trackerService.UpdatePhase(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "phaseId"), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update phase")
		return
	}
	respondJSON(w, http.StatusOK, phase)
}

// RemovePhase godoc
// @Summary Remove a phase
// @Description Tasks of the phase are kept without a phase
// @Tags Tracker
// @Param id path string true "Job ID"
// @Param phaseId path string true "Phase ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs/{id}/phases/{phaseId} [delete]
func (h *TrackerHandler) RemovePhase(w http.ResponseWriter, r *http.Request) {
	if err := h.trackerService.RemovePhase(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "phaseId")); err != nil {
		handleServiceError(w, h.logger, err, "remove phase")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTask godoc
// @Summary Add a task to a tracker job
// @Tags Tracker
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param request body tracker.TaskInput true "Task"
// @Success 201 {object} tracker.Task
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs/{id}/tasks [post]
func (h *TrackerHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req tracker.TaskInput
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.trackerService.AddTask(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "add task")
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// UpdateTask godoc
// @Summary Update a task
// @Description Moving a task to completed stamps its completion time
// @Tags Tracker
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param taskId path string true "Task ID"
// @Param request body tracker.TaskUpdate true "Fields to change"
// @Success 200 {object} tracker.Task
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs/{id}/tasks/{taskId} [patch]
func (h *TrackerHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req tracker.TaskUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.trackerService.UpdateTask(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "taskId"), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// RemoveTask godoc
// @Summary Remove a task
// @Tags Tracker
// @Param id path string true "Job ID"
// @Param taskId path string true "Task ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs/{id}/tasks/{taskId} [delete]
func (h *TrackerHandler) RemoveTask(w http.ResponseWriter, r *http.Request) {
	if err := h.trackerService.RemoveTask(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "taskId")); err != nil {
		handleServiceError(w, h.logger, err, "remove task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMaterial godoc
// @Summary Add a material to a tracker job
// @Tags Tracker
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param request body tracker.MaterialInput true "Material"
// @Success 201 {object} tracker.Material
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs/{id}/materials [post]
func (h *TrackerHandler) AddMaterial(w http.ResponseWriter, r *http.Request) {
	var req tracker.MaterialInput
	if !decodeJSON(w, r, &req) {
		return
	}

	material, err := h.trackerService.AddMaterial(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "add material")
		return
	}
	respondJSON(w, http.StatusCreated, material)
}

// RemoveMaterial godoc
// @Summary Remove a material
// @Tags Tracker
// @Param id path string true "Job ID"
// @Param materialId path string true "Material ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tracker/jobs/{id}/materials/{materialId} [delete]
func (h *TrackerHandler) RemoveMaterial(w http.ResponseWriter, r *http.Request) {
	if err := h.trackerService.RemoveMaterial(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "materialId")); err != nil {
		handleServiceError(w, h.logger, err, "remove material")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
