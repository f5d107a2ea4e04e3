package handler

import (
	"net/http"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"go.uber.org/zap"
)

// EstimateHandler handles HTTP requests for estimates and their line items
type EstimateHandler struct {
	estimateService *service.EstimateService
	logger          *zap.Logger
}

// NewEstimateHandler creates a new estimate handler instance
func NewEstimateHandler(estimateService *service.EstimateService, logger *zap.Logger) *EstimateHandler {
	return &EstimateHandler{
		estimateService: estimateService,
		logger:          logger,
	}
}

// List godoc
// @Summary List estimates
// @Tags Estimates
// @Produce json
// @Param sortBy query string false "Sort field" Enums(title, status, total, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {array} domain.EstimateDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /estimates [get]
func (h *EstimateHandler) List(w http.ResponseWriter, r *http.Request) {
	estimates, err := h.estimateService.List(r.Context(), sortFromQuery(r))
	if err != nil {
		handleServiceError(w, h.logger, err, "list estimates")
		return
	}
	respondJSON(w, http.StatusOK, estimates)
}

// Create godoc
// @Summary Create an estimate for a site
// @Description The title defaults to "<site name> Estimate"
// @Tags Estimates
// @Accept json
// @Produce json
// @Param request body domain.CreateEstimateRequest true "Estimate"
// @Success 201 {object} domain.EstimateDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError "Site not found"
// @Security BearerAuth
// @Router /estimates [post]
func (h *EstimateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateEstimateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	estimate, err := h.estimateService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create estimate")
		return
	}

	w.Header().Set("Location", "/api/v1/estimates/"+estimate.ID.String())
	respondJSON(w, http.StatusCreated, estimate)
}

// GetByID godoc
// @Summary Get an estimate with its line items
// @Tags Estimates
// @Produce json
// @Param id path string true "Estimate ID" format(uuid)
// @Success 200 {object} domain.EstimateDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /estimates/{id} [get]
func (h *EstimateHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	estimate, err := h.estimateService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get estimate")
		return
	}
	respondJSON(w, http.StatusOK, estimate)
}

// Update godoc
// @Summary Update the title or status of an estimate
// @Tags Estimates
// @Accept json
// @Produce json
// @Param id path string true "Estimate ID" format(uuid)
// @Param request body domain.UpdateEstimateRequest true "Fields to change"
// @Success 200 {object} domain.EstimateDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /estimates/{id} [patch]
func (h *EstimateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateEstimateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	estimate, err := h.estimateService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update estimate")
		return
	}
	respondJSON(w, http.StatusOK, estimate)
}

// Delete godoc
// @Summary Delete an estimate
// @Tags Estimates
// @Param id path string true "Estimate ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Estimate was converted to a job"
// @Security BearerAuth
// @Router /estimates/{id} [delete]
func (h *EstimateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.estimateService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete estimate")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddLineItem godoc
// @Summary Add a line item
// @Description Quantity and unit price are decimal strings; the estimate total is recomputed
// @Tags Estimates
// @Accept json
// @Produce json
// @Param id path string true "Estimate ID" format(uuid)
// @Param request body domain.AddLineItemRequest true "Line item"
// @Success 201 {object} domain.EstimateDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /estimates/{id}/line-items [post]
func (h *EstimateHandler) AddLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.AddLineItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	estimate, err := h.estimateService.AddLineItem(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "add line item")
		return
	}
	respondJSON(w, http.StatusCreated, estimate)
}

// DeleteLineItem godoc
// @Summary Delete a line item
// @Tags Estimates
// @Produce json
// @Param id path string true "Estimate ID" format(uuid)
// @Param itemId path string true "Line item ID" format(uuid)
// @Success 200 {object} domain.EstimateDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /estimates/{id}/line-items/{itemId} [delete]
func (h *EstimateHandler) DeleteLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := uuidParam(w, r, "itemId")
	if !ok {
		return
	}

	estimate, err := h.estimateService.DeleteLineItem(r.Context(), id, itemID)
	if err != nil {
		handleServiceError(w, h.logger, err, "delete line item")
		return
	}
	respondJSON(w, http.StatusOK, estimate)
}

// Convert godoc
// @Summary Convert an estimate into a job
// @Description Creates an active job with one budget per line item
// @Tags Estimates
// @Produce json
// @Param id path string true "Estimate ID" format(uuid)
// @Success 201 {object} domain.JobDetailDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Estimate already converted"
// @Security BearerAuth
// @Router /estimates/{id}/convert [post]
func (h *EstimateHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	job, err := h.estimateService.ConvertToJob(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "convert estimate")
		return
	}

	w.Header().Set("Location", "/api/v1/jobs/"+job.ID.String())
	respondJSON(w, http.StatusCreated, job)
}

// PDF godoc
// @Summary Download the estimate as PDF
// @Tags Estimates
// @Produce application/pdf
// @Param id path string true "Estimate ID" format(uuid)
// @Success 200 {file} binary
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /estimates/{id}/pdf [get]
func (h *EstimateHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	filename, content, err := h.estimateService.RenderPDF(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "render estimate")
		return
	}
	respondFile(w, "application/pdf", filename, content)
}
