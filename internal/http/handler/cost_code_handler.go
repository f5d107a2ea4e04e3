package handler

import (
	"net/http"

	"github.com/mcsmartbytes/job-sense/internal/service"
	"go.uber.org/zap"
)

type CostCodeHandler struct {
	costCodeService *service.CostCodeService
	logger          *zap.Logger
}

func NewCostCodeHandler(costCodeService *service.CostCodeService, logger *zap.Logger) *CostCodeHandler {
	return &CostCodeHandler{
		costCodeService: costCodeService,
		logger:          logger,
	}
}

// List godoc
// @Summary List cost codes
// @Description Lists the user's cost codes ordered by code, seeding the defaults on first use
// @Tags Cost Codes
// @Produce json
// @Success 200 {array} domain.CostCodeDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /cost-codes [get]
func (h *CostCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	codes, err := h.costCodeService.List(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list cost codes")
		return
	}
	respondJSON(w, http.StatusOK, codes)
}
