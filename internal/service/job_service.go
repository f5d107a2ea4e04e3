package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/export"
	"github.com/mcsmartbytes/job-sense/internal/mapper"
	"github.com/mcsmartbytes/job-sense/internal/repository"
	"github.com/mcsmartbytes/job-sense/internal/rollup"
	"go.uber.org/zap"
)

// JobService handles persisted jobs, their actual costs and the cost report
type JobService struct {
	jobRepo      *repository.JobRepository
	costCodeRepo *repository.CostCodeRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewJobService creates a new job service instance
func NewJobService(jobRepo *repository.JobRepository, costCodeRepo *repository.CostCodeRepository, logger *zap.Logger) *JobService {
	return &JobService{
		jobRepo:      jobRepo,
		costCodeRepo: costCodeRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// List returns the user's jobs without budgets or costs
func (s *JobService) List(ctx context.Context, sort repository.SortConfig) ([]domain.JobDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	jobs, err := s.jobRepo.List(ctx, userID, sort)
	if err != nil {
		s.logger.Error("Failed to list jobs", zap.Error(err))
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	dtos := make([]domain.JobDTO, len(jobs))
	for i := range jobs {
		dtos[i] = mapper.ToJobDTO(&jobs[i])
	}
	return dtos, nil
}

// GetDetail returns a job with budgets, costs and the budget variance
func (s *JobService) GetDetail(ctx context.Context, id uuid.UUID) (*domain.JobDetailDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	job, err := s.jobRepo.GetDetail(ctx, userID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	dto := mapper.ToJobDetailDTO(job)
	return &dto, nil
}

// AddCost logs an actual expenditure against a job
func (s *JobService) AddCost(ctx context.Context, jobID uuid.UUID, req *domain.AddJobCostRequest) (*domain.JobCostDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	amount, err := positiveAmount("amount", req.Amount, rollup.MoneyPlaces)
	if err != nil {
		return nil, err
	}

	if _, err := s.jobRepo.GetByID(ctx, userID, jobID); err != nil {
		if isNotFound(err) {
			s.logger.Warn("Cost rejected for job not owned by user",
				zap.String("user_id", userID.String()),
				zap.String("job_id", jobID.String()),
			)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var costCode *domain.CostCode
	if req.CostCodeID != nil {
		costCode, err = s.costCodeRepo.GetByID(ctx, userID, *req.CostCodeID)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: unknown cost code", ErrInvalidInput)
			}
			return nil, fmt.Errorf("failed to get cost code: %w", err)
		}
	}

	cost := &domain.JobCost{
		JobID:       jobID,
		CostCodeID:  req.CostCodeID,
		Description: strings.TrimSpace(req.Description),
		Amount:      amount,
	}
	if err := s.jobRepo.AddCost(ctx, cost); err != nil {
		s.logger.Error("Failed to add job cost", zap.String("job_id", jobID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to add job cost: %w", err)
	}
	cost.CostCode = costCode

	dto := mapper.ToJobCostDTO(cost)
	return &dto, nil
}

// UpdateStatus moves a job along planned -> active -> completed, or to cancelled.
// Entering active stamps the start date and leaving for a terminal status stamps the end date.
func (s *JobService) UpdateStatus(ctx context.Context, id uuid.UUID, req *domain.UpdateJobStatusRequest) (*domain.JobDTO, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	next, err := domain.ParseJobStatus(string(req.Status))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	job, err := s.jobRepo.GetByID(ctx, userID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if !job.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, next)
	}
	if job.Status == next {
		dto := mapper.ToJobDTO(job)
		return &dto, nil
	}

	now := s.now().UTC()
	switch next {
	case domain.JobStatusActive:
		if job.StartDate == nil {
			job.StartDate = &now
		}
	case domain.JobStatusCompleted, domain.JobStatusCancelled:
		if job.EndDate == nil {
			job.EndDate = &now
		}
	}
	job.Status = next

	if err := s.jobRepo.UpdateStatus(ctx, job); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		s.logger.Error("Failed to update job status", zap.String("job_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to update job status: %w", err)
	}

	s.logger.Info("Job status changed", zap.String("job_id", id.String()), zap.String("status", string(next)))
	job.UpdatedAt = now
	dto := mapper.ToJobDTO(job)
	return &dto, nil
}

// CostReport renders every job of the user with its variance as an xlsx workbook.
// Returns the file name and content.
func (s *JobService) CostReport(ctx context.Context) (string, []byte, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return "", nil, err
	}

	jobs, err := s.jobRepo.ListDetailed(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load jobs for report", zap.Error(err))
		return "", nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	content, err := export.JobCostWorkbook(jobs)
	if err != nil {
		s.logger.Error("Failed to render job cost workbook", zap.Error(err))
		return "", nil, fmt.Errorf("failed to render job cost report: %w", err)
	}

	name := fmt.Sprintf("job-costs-%s.xlsx", s.now().Format("2006-01-02"))
	return name, content, nil
}
