package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/export"
	"github.com/mcsmartbytes/job-sense/internal/mapper"
	"github.com/mcsmartbytes/job-sense/internal/repository"
	"github.com/mcsmartbytes/job-sense/internal/rollup"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EstimateService handles estimates, their line items and conversion to jobs
type EstimateService struct {
	estimateRepo *repository.EstimateRepository
	siteRepo     *repository.SiteRepository
	costCodeRepo *repository.CostCodeRepository
	jobRepo      *repository.JobRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewEstimateService creates a new estimate service instance
func NewEstimateService(
	estimateRepo *repository.EstimateRepository,
	siteRepo *repository.SiteRepository,
	costCodeRepo *repository.CostCodeRepository,
	jobRepo *repository.JobRepository,
	logger *zap.Logger,
) *EstimateService {
	return &EstimateService{
		estimateRepo: estimateRepo,
		siteRepo:     siteRepo,
		costCodeRepo: costCodeRepo,
		jobRepo:      jobRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Create creates a draft estimate for one of the user's sites.
// The title defaults to "<site name> Estimate".
func (s *EstimateService) Create(ctx context.Context, req *domain.CreateEstimateRequest) (*domain.EstimateDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	site, err := s.siteRepo.GetByID(ctx, userID, req.SiteID)
	if err != nil {
		if isNotFound(err) {
			s.logger.Warn("Estimate requested for a site the user does not own",
				zap.String("user_id", userID.String()),
				zap.String("site_id", req.SiteID.String()),
			)
			return nil, fmt.Errorf("%w: site", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = site.Name + " Estimate"
	}

	estimate := &domain.Estimate{
		UserID: userID,
		SiteID: &site.ID,
		Title:  title,
		Status: domain.EstimateStatusDraft,
	}
	if err := s.estimateRepo.Create(ctx, estimate); err != nil {
		s.logger.Error("Failed to create estimate", zap.String("site_id", site.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to create estimate: %w", err)
	}
	estimate.Site = site

	dto := mapper.ToEstimateDTO(estimate)
	return &dto, nil
}

// CreateForBid creates a draft estimate linked to a won pipeline bid
func (s *EstimateService) CreateForBid(ctx context.Context, bidID, bidName string) (*domain.EstimateDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(bidName)
	if title == "" {
		title = "Bid Estimate"
	} else {
		title += " Estimate"
	}

	estimate := &domain.Estimate{
		UserID: userID,
		BidID:  &bidID,
		Title:  title,
		Status: domain.EstimateStatusDraft,
	}
	if err := s.estimateRepo.Create(ctx, estimate); err != nil {
		s.logger.Error("Failed to create estimate for bid", zap.String("bid_id", bidID), zap.Error(err))
		return nil, fmt.Errorf("failed to create estimate: %w", err)
	}

	dto := mapper.ToEstimateDTO(estimate)
	return &dto, nil
}

// List returns the user's estimates without line items
func (s *EstimateService) List(ctx context.Context, sort repository.SortConfig) ([]domain.EstimateDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	estimates, err := s.estimateRepo.List(ctx, userID, sort)
	if err != nil {
		s.logger.Error("Failed to list estimates", zap.Error(err))
		return nil, fmt.Errorf("failed to list estimates: %w", err)
	}

	dtos := make([]domain.EstimateDTO, len(estimates))
	for i := range estimates {
		dtos[i] = mapper.ToEstimateDTO(&estimates[i])
	}
	return dtos, nil
}

// GetByID returns an estimate with its line items
func (s *EstimateService) GetByID(ctx context.Context, id uuid.UUID) (*domain.EstimateDTO, error) {
	estimate, err := s.loadWithLineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToEstimateDTO(estimate)
	return &dto, nil
}

// Update changes the title and/or status of an estimate
func (s *EstimateService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateEstimateRequest) (*domain.EstimateDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		updates["title"] = title
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *req.Status)
		}
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		return s.GetByID(ctx, id)
	}

	if err := s.estimateRepo.Update(ctx, userID, id, updates); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		s.logger.Error("Failed to update estimate", zap.String("estimate_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to update estimate: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Delete removes an estimate and its line items. Estimates that were converted
// to a job are kept so the job's budgets keep their source.
func (s *EstimateService) Delete(ctx context.Context, id uuid.UUID) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	if _, err := s.estimateRepo.GetByID(ctx, userID, id); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get estimate: %w", err)
	}

	converted, err := s.jobRepo.ExistsForEstimate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check estimate jobs: %w", err)
	}
	if converted {
		return fmt.Errorf("%w: estimate has been converted to a job", ErrConflict)
	}

	if err := s.estimateRepo.Delete(ctx, userID, id); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		s.logger.Error("Failed to delete estimate", zap.String("estimate_id", id.String()), zap.Error(err))
		return fmt.Errorf("failed to delete estimate: %w", err)
	}
	return nil
}

// AddLineItem prices a new line item and returns the estimate with its new total
func (s *EstimateService) AddLineItem(ctx context.Context, estimateID uuid.UUID, req *domain.AddLineItemRequest) (*domain.EstimateDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		return nil, fmt.Errorf("%w: unit is required", ErrInvalidInput)
	}
	quantity, err := positiveAmount("quantity", req.Quantity, rollup.QuantityPlaces)
	if err != nil {
		return nil, err
	}
	unitPrice, err := positiveAmount("unitPrice", req.UnitPrice, rollup.MoneyPlaces)
	if err != nil {
		return nil, err
	}

	if _, err := s.estimateRepo.GetByID(ctx, userID, estimateID); err != nil {
		if isNotFound(err) {
			s.logger.Warn("Line item rejected for estimate not owned by user",
				zap.String("user_id", userID.String()),
				zap.String("estimate_id", estimateID.String()),
			)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get estimate: %w", err)
	}

	if req.CostCodeID != nil {
		if _, err := s.costCodeRepo.GetByID(ctx, userID, *req.CostCodeID); err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: unknown cost code", ErrInvalidInput)
			}
			return nil, fmt.Errorf("failed to get cost code: %w", err)
		}
	}

	item := &domain.EstimateLineItem{
		EstimateID:  estimateID,
		Description: description,
		Quantity:    quantity,
		Unit:        unit,
		UnitPrice:   unitPrice,
		Total:       rollup.LineItemTotal(quantity, unitPrice),
		CostCodeID:  req.CostCodeID,
	}
	total, err := s.estimateRepo.AddLineItem(ctx, item)
	if err != nil {
		s.logger.Error("Failed to add line item", zap.String("estimate_id", estimateID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to add line item: %w", err)
	}

	s.logger.Debug("Line item added",
		zap.String("estimate_id", estimateID.String()),
		zap.String("estimate_total", total.StringFixed(2)),
	)
	return s.GetByID(ctx, estimateID)
}

// DeleteLineItem removes a line item and returns the estimate with its new total
func (s *EstimateService) DeleteLineItem(ctx context.Context, estimateID, itemID uuid.UUID) (*domain.EstimateDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.estimateRepo.GetByID(ctx, userID, estimateID); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get estimate: %w", err)
	}

	if _, err := s.estimateRepo.DeleteLineItem(ctx, estimateID, itemID); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: line item", ErrNotFound)
		}
		s.logger.Error("Failed to delete line item", zap.String("estimate_id", estimateID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to delete line item: %w", err)
	}

	return s.GetByID(ctx, estimateID)
}

// ConvertToJob creates an active job with one budget per line item, each pinned
// to the line item's current total
func (s *EstimateService) ConvertToJob(ctx context.Context, estimateID uuid.UUID) (*domain.JobDetailDTO, error) {
	estimate, err := s.loadWithLineItems(ctx, estimateID)
	if err != nil {
		return nil, err
	}

	startDate := s.now().UTC()
	job := &domain.Job{
		UserID:     estimate.UserID,
		EstimateID: &estimate.ID,
		BidID:      estimate.BidID,
		Name:       estimate.Title,
		Status:     domain.JobStatusActive,
		StartDate:  &startDate,
	}

	budgets := make([]domain.JobBudget, 0, len(estimate.LineItems))
	for i := range estimate.LineItems {
		item := estimate.LineItems[i]
		budgets = append(budgets, domain.JobBudget{
			EstimateLineItemID: &item.ID,
			CostCodeID:         item.CostCodeID,
			Description:        item.Description,
			BudgetTotal:        item.Total,
		})
	}

	if err := s.jobRepo.CreateFromEstimate(ctx, job, budgets); err != nil {
		if errors.Is(err, repository.ErrAlreadyConverted) {
			return nil, fmt.Errorf("%w: estimate already has a job", ErrConflict)
		}
		s.logger.Error("Failed to convert estimate", zap.String("estimate_id", estimateID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to convert estimate: %w", err)
	}

	s.logger.Info("Estimate converted to job",
		zap.String("estimate_id", estimateID.String()),
		zap.String("job_id", job.ID.String()),
		zap.Int("budgets", len(budgets)),
	)

	detail, err := s.jobRepo.GetDetail(ctx, job.UserID, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	dto := mapper.ToJobDetailDTO(detail)
	return &dto, nil
}

// RenderPDF renders the printable estimate. Returns the file name and content.
func (s *EstimateService) RenderPDF(ctx context.Context, estimateID uuid.UUID) (string, []byte, error) {
	estimate, err := s.loadWithLineItems(ctx, estimateID)
	if err != nil {
		return "", nil, err
	}

	content, err := export.EstimatePDF(estimate, s.now())
	if err != nil {
		s.logger.Error("Failed to render estimate PDF", zap.String("estimate_id", estimateID.String()), zap.Error(err))
		return "", nil, fmt.Errorf("failed to render estimate: %w", err)
	}
	return export.EstimateReference(estimate.ID) + ".pdf", content, nil
}

func (s *EstimateService) loadWithLineItems(ctx context.Context, id uuid.UUID) (*domain.Estimate, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	estimate, err := s.estimateRepo.GetWithLineItems(ctx, userID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get estimate: %w", err)
	}
	return estimate, nil
}

// positiveAmount parses a decimal string that must be greater than zero and
// fit the column scale without rounding
func positiveAmount(field, raw string, places int32) (decimal.Decimal, error) {
	amount, err := rollup.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s must be a decimal number", ErrInvalidInput, field)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be greater than zero", ErrInvalidInput, field)
	}
	if !rollup.FitsPlaces(amount, places) {
		return decimal.Zero, fmt.Errorf("%w: %s allows at most %d decimal places", ErrInvalidInput, field, places)
	}
	return amount, nil
}
