package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/mapper"
	"github.com/mcsmartbytes/job-sense/internal/repository"
	"go.uber.org/zap"
)

const defaultObjectType = "unclassified"

// SiteService handles business logic for sites and their drawn objects
type SiteService struct {
	siteRepo *repository.SiteRepository
	logger   *zap.Logger
}

// NewSiteService creates a new site service instance
func NewSiteService(siteRepo *repository.SiteRepository, logger *zap.Logger) *SiteService {
	return &SiteService{
		siteRepo: siteRepo,
		logger:   logger,
	}
}

// Create creates a site for the authenticated user
func (s *SiteService) Create(ctx context.Context, req *domain.CreateSiteRequest) (*domain.SiteDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	site := &domain.Site{
		UserID:  userID,
		Name:    name,
		Address: strings.TrimSpace(req.Address),
	}
	if err := s.siteRepo.Create(ctx, site); err != nil {
		s.logger.Error("Failed to create site", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to create site: %w", err)
	}

	dto := mapper.ToSiteDTO(site)
	return &dto, nil
}

// List returns the user's sites, most recently updated first by default
func (s *SiteService) List(ctx context.Context, sort repository.SortConfig) ([]domain.SiteDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	sites, err := s.siteRepo.List(ctx, userID, sort)
	if err != nil {
		s.logger.Error("Failed to list sites", zap.Error(err))
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}

	dtos := make([]domain.SiteDTO, len(sites))
	for i := range sites {
		dtos[i] = mapper.ToSiteDTO(&sites[i])
	}
	return dtos, nil
}

// GetByID returns one of the user's sites
func (s *SiteService) GetByID(ctx context.Context, id uuid.UUID) (*domain.SiteDTO, error) {
	site, err := s.ownedSite(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToSiteDTO(site)
	return &dto, nil
}

// Delete removes a site and its objects; estimates that referenced it are kept
func (s *SiteService) Delete(ctx context.Context, id uuid.UUID) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	if err := s.siteRepo.Delete(ctx, userID, id); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		s.logger.Error("Failed to delete site", zap.String("site_id", id.String()), zap.Error(err))
		return fmt.Errorf("failed to delete site: %w", err)
	}
	return nil
}

// ListObjects returns the drawn objects of one of the user's sites
func (s *SiteService) ListObjects(ctx context.Context, siteID uuid.UUID) ([]domain.SiteObjectDTO, error) {
	if _, err := s.ownedSite(ctx, siteID); err != nil {
		return nil, err
	}

	objects, err := s.siteRepo.ListObjects(ctx, siteID)
	if err != nil {
		s.logger.Error("Failed to list site objects", zap.String("site_id", siteID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list site objects: %w", err)
	}

	dtos := make([]domain.SiteObjectDTO, len(objects))
	for i := range objects {
		dtos[i] = mapper.ToSiteObjectDTO(&objects[i])
	}
	return dtos, nil
}

// ReplaceObjects swaps every object of the site for the submitted features
func (s *SiteService) ReplaceObjects(ctx context.Context, siteID uuid.UUID, req *domain.ReplaceSiteObjectsRequest) (*domain.ReplaceSiteObjectsResponse, error) {
	if _, err := s.ownedSite(ctx, siteID); err != nil {
		return nil, err
	}

	objects := make([]domain.SiteObject, 0, len(req.Features))
	for i, feature := range req.Features {
		if len(feature.Geometry) == 0 || !json.Valid(feature.Geometry) {
			return nil, fmt.Errorf("%w: features[%d].geometry must be a JSON document", ErrInvalidInput, i)
		}
		measurements := "{}"
		if len(feature.Measurements) > 0 && string(feature.Measurements) != "null" {
			if !json.Valid(feature.Measurements) {
				return nil, fmt.Errorf("%w: features[%d].measurements must be a JSON document", ErrInvalidInput, i)
			}
			measurements = string(feature.Measurements)
		}
		objectType := strings.TrimSpace(feature.ObjectType)
		if objectType == "" {
			objectType = defaultObjectType
		}
		objects = append(objects, domain.SiteObject{
			SiteID:       siteID,
			ObjectType:   objectType,
			Geometry:     string(feature.Geometry),
			Measurements: measurements,
		})
	}

	if err := s.siteRepo.ReplaceObjects(ctx, siteID, objects); err != nil {
		s.logger.Error("Failed to replace site objects", zap.String("site_id", siteID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to replace site objects: %w", err)
	}

	return &domain.ReplaceSiteObjectsResponse{OK: true, Count: len(objects)}, nil
}

func (s *SiteService) ownedSite(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	site, err := s.siteRepo.GetByID(ctx, userID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}
