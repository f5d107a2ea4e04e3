package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mcsmartbytes/job-sense/internal/pipeline"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"github.com/mcsmartbytes/job-sense/internal/tracker"
	"go.uber.org/zap"
)

// ConvertBidRequest optionally carries priced line items into the new job
type ConvertBidRequest struct {
	LineItems []tracker.LineItemInput `json:"lineItems,omitempty" validate:"dive"`
}

// SetActiveBidRequest selects a bid; a null bidId clears the selection
type SetActiveBidRequest struct {
	BidID *string `json:"bidId"`
}

// PipelineHandler handles the bid pipeline of the authenticated user
type PipelineHandler struct {
	pipelineService *service.PipelineService
	logger          *zap.Logger
}

// NewPipelineHandler creates a new pipeline handler instance
func NewPipelineHandler(pipelineService *service.PipelineService, logger *zap.Logger) *PipelineHandler {
	return &PipelineHandler{
		pipelineService: pipelineService,
		logger:          logger,
	}
}

// ListBids godoc
// @Summary List bids matching the saved filters
// @Tags Pipeline
// @Produce json
// @Success 200 {array} pipeline.Bid
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/bids [get]
func (h *PipelineHandler) ListBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.pipelineService.ListBids(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list bids")
		return
	}
	respondJSON(w, http.StatusOK, bids)
}

// CreateBid godoc
// @Summary Create a bid
// @Description Stage defaults to lead and priority to medium
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param request body pipeline.BidInput true "Bid"
// @Success 201 {object} pipeline.Bid
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/bids [post]
func (h *PipelineHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	var req pipeline.BidInput
	if !decodeJSON(w, r, &req) {
		return
	}

	bid, err := h.pipelineService.CreateBid(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create bid")
		return
	}

	w.Header().Set("Location", "/api/v1/pipeline/bids/"+bid.ID)
	respondJSON(w, http.StatusCreated, bid)
}

// GetBid godoc
// @Summary Get a bid
// @Tags Pipeline
// @Produce json
// @Param id path string true "Bid ID"
// @Success 200 {object} pipeline.Bid
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/bids/{id} [get]
func (h *PipelineHandler) GetBid(w http.ResponseWriter, r *http.Request) {
	bid, err := h.pipelineService.GetBid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err, "get bid")
		return
	}
	respondJSON(w, http.StatusOK, bid)
}

// UpdateBid godoc
// @Summary Update a bid
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param id path string true "Bid ID"
// @Param request body pipeline.BidUpdate true "Fields to change"
// @Success 200 {object} pipeline.Bid
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/bids/{id} [patch]
func (h *PipelineHandler) UpdateBid(w http.ResponseWriter, r *http.Request) {
	var req pipeline.BidUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	bid, err := h.pipelineService.UpdateBid(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update bid")
		return
	}
	respondJSON(w, http.StatusOK, bid)
}

// DeleteBid godoc
// @Summary Delete a bid
// @Tags Pipeline
// @Param id path string true "Bid ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/bids/{id} [delete]
func (h *PipelineHandler) DeleteBid(w http.ResponseWriter, r *http.Request) {
	if err := h.pipelineService.DeleteBid(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.logger, err, "delete bid")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Board godoc
// @Summary Get the pipeline board
// @Description Every stage in board order with the filtered bids in it
// @Tags Pipeline
// @Produce json
// @Success 200 {array} pipeline.BoardColumn
// @Security BearerAuth
// @Router /pipeline/board [get]
func (h *PipelineHandler) Board(w http.ResponseWriter, r *http.Request) {
	board, err := h.pipelineService.Board(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get board")
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// Stats godoc
// @Summary Get pipeline statistics
// @Tags Pipeline
// @Produce json
// @Success 200 {object} pipeline.Stats
// @Security BearerAuth
// @Router /pipeline/stats [get]
func (h *PipelineHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pipelineService.Stats(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get pipeline stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Filters godoc
// @Summary Get the saved bid filters
// @Tags Pipeline
// @Produce json
// @Success 200 {object} pipeline.Filters
// @Security BearerAuth
// @Router /pipeline/filters [get]
func (h *PipelineHandler) Filters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.pipelineService.Filters(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get filters")
		return
	}
	respondJSON(w, http.StatusOK, filters)
}

// SetFilters godoc
// @Summary Merge into the saved bid filters
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param request body pipeline.FiltersUpdate true "Filter changes"
// @Success 200 {object} pipeline.Filters
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/filters [patch]
func (h *PipelineHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var req pipeline.FiltersUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	filters, err := h.pipelineService.SetFilters(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "set filters")
		return
	}
	respondJSON(w, http.StatusOK, filters)
}

// ClearFilters godoc
// @Summary Clear the saved bid filters
// @Tags Pipeline
// @Success 204
// @Security BearerAuth
// @Router /pipeline/filters [delete]
func (h *PipelineHandler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	if err := h.pipelineService.ClearFilters(r.Context()); err != nil {
		handleServiceError(w, h.logger, err, "clear filters")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActiveBid godoc
// @Summary Get the selected bid
// @Description Responds with null when no bid is selected
// @Tags Pipeline
// @Produce json
// @Success 200 {object} pipeline.Bid
// @Security BearerAuth
// @Router /pipeline/active [get]
func (h *PipelineHandler) ActiveBid(w http.ResponseWriter, r *http.Request) {
	bid, err := h.pipelineService.ActiveBid(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get active bid")
		return
	}
	respondJSON(w, http.StatusOK, bid)
}

// SetActiveBid godoc
// @Summary Select a bid
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param request body SetActiveBidRequest true "Bid to select, or null"
// @Success 200 {object} pipeline.Bid
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/active [put]
func (h *PipelineHandler) SetActiveBid(w http.ResponseWriter, r *http.Request) {
	var req SetActiveBidRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := ""
	if req.BidID != nil {
		id = *req.BidID
	}

	bid, err := h.pipelineService.SetActiveBid(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "set active bid")
		return
	}
	respondJSON(w, http.StatusOK, bid)
}

// ConvertBid godoc
// @Summary Convert a bid into a tracker job
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param id path string true "Bid ID"
// @Param request body ConvertBidRequest false "Line items for the job"
// @Success 201 {object} tracker.Job
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/bids/{id}/convert [post]
func (h *PipelineHandler) ConvertBid(w http.ResponseWriter, r *http.Request) {
	var req ConvertBidRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	job, err := h.pipelineService.ConvertBid(r.Context(), chi.URLParam(r, "id"), req.LineItems)
	if err != nil {
		handleServiceError(w, h.logger, err, "convert bid")
		return
	}

	w.Header().Set("Location", "/api/v1/tracker/jobs/"+job.ID)
	respondJSON(w, http.StatusCreated, job)
}

// CreateEstimate godoc
// @Summary Start an estimate for a won bid
// @Tags Pipeline
// @Produce json
// @Param id path string true "Bid ID"
// @Success 201 {object} domain.EstimateDTO
// @Failure 400 {object} domain.APIError "Bid is not won"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/bids/{id}/estimate [post]
func (h *PipelineHandler) CreateEstimate(w http.ResponseWriter, r *http.Request) {
	estimate, err := h.pipelineService.CreateEstimate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err, "create estimate from bid")
		return
	}

	w.Header().Set("Location", "/api/v1/estimates/"+estimate.ID.String())
	respondJSON(w, http.StatusCreated, estimate)
}
