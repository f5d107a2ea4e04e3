package handler

import (
	"net/http"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"go.uber.org/zap"
)

// SiteHandler handles HTTP requests for sites and their drawn objects
type SiteHandler struct {
	siteService *service.SiteService
	logger      *zap.Logger
}

// NewSiteHandler creates a new site handler instance
func NewSiteHandler(siteService *service.SiteService, logger *zap.Logger) *SiteHandler {
	return &SiteHandler{
		siteService: siteService,
		logger:      logger,
	}
}

// List godoc
// @Summary List sites
// @Tags Sites
// @Produce json
// @Param sortBy query string false "Sort field" Enums(name, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {array} domain.SiteDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /sites [get]
func (h *SiteHandler) List(w http.ResponseWriter, r *http.Request) {
	sites, err := h.siteService.List(r.Context(), sortFromQuery(r))
	if err != nil {
		handleServiceError(w, h.logger, err, "list sites")
		return
	}
	respondJSON(w, http.StatusOK, sites)
}

// Create godoc
// @Summary Create a site
// @Tags Sites
// @Accept json
// @Produce json
// @Param request body domain.CreateSiteRequest true "Site"
// @Success 201 {object} domain.SiteDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /sites [post]
func (h *SiteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSiteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	site, err := h.siteService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create site")
		return
	}

	w.Header().Set("Location", "/api/v1/sites/"+site.ID.String())
	respondJSON(w, http.StatusCreated, site)
}

// GetByID godoc
// @Summary Get a site
// @Tags Sites
// @Produce json
// @Param id path string true "Site ID" format(uuid)
// @Success 200 {object} domain.SiteDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sites/{id} [get]
func (h *SiteHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	site, err := h.siteService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get site")
		return
	}
	respondJSON(w, http.StatusOK, site)
}

// Delete godoc
// @Summary Delete a site
// @Description Deletes the site and its objects; estimates for the site are kept without a site
// @Tags Sites
// @Param id path string true "Site ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sites/{id} [delete]
func (h *SiteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.siteService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete site")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListObjects godoc
// @Summary List the drawn objects of a site
// @Tags Sites
// @Produce json
// @Param id path string true "Site ID" format(uuid)
// @Success 200 {array} domain.SiteObjectDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sites/{id}/objects [get]
func (h *SiteHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	objects, err := h.siteService.ListObjects(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "list site objects")
		return
	}
	respondJSON(w, http.StatusOK, objects)
}

// ReplaceObjects godoc
// @Summary Replace the drawn objects of a site
// @Description Deletes every object of the site and stores the submitted features in one transaction
// @Tags Sites
// @Accept json
// @Produce json
// @Param id path string true "Site ID" format(uuid)
// @Param request body domain.ReplaceSiteObjectsRequest true "Features"
// @Success 200 {object} domain.ReplaceSiteObjectsResponse
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sites/{id}/objects [put]
func (h *SiteHandler) ReplaceObjects(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.ReplaceSiteObjectsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.siteService.ReplaceObjects(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "replace site objects")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
