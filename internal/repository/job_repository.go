package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"gorm.io/gorm"
)

// ErrAlreadyConverted is returned when an estimate already has a job
var ErrAlreadyConverted = errors.New("estimate already converted to a job")

var jobSortFields = map[string]string{
	"name":      "name",
	"status":    "status",
	"startDate": "start_date",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// CreateFromEstimate inserts job and its budgets in one transaction
func (r *JobRepository) CreateFromEstimate(ctx context.Context, job *domain.Job, budgets []domain.JobBudget) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if job.EstimateID != nil {
			var count int64
			if err := tx.Model(&domain.Job{}).Where("estimate_id = ?", *job.EstimateID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrAlreadyConverted
			}
		}

		if err := tx.Omit("Budgets", "Costs", "Estimate").Create(job).Error; err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}

		for i := range budgets {
			budgets[i].JobID = job.ID
		}
		if len(budgets) > 0 {
			if err := tx.Create(&budgets).Error; err != nil {
				return fmt.Errorf("failed to create job budgets: %w", err)
			}
		}
		job.Budgets = budgets
		return nil
	})
}

// ExistsForEstimate reports whether a job was converted from the estimate
func (r *JobRepository) ExistsForEstimate(ctx context.Context, estimateID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Job{}).Where("estimate_id = ?", estimateID).Count(&count).Error
	return count > 0, err
}

// GetByID returns the job when it is owned by userID
func (r *JobRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Job, error) {
	var job domain.Job
	err := r.db.WithContext(ctx).Scopes(OwnedBy(userID)).First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetDetail returns an owned job with budgets and costs
func (r *JobRepository) GetDetail(ctx context.Context, userID, id uuid.UUID) (*domain.Job, error) {
	var job domain.Job
	err := r.db.WithContext(ctx).
		Scopes(OwnedBy(userID)).
		Scopes(preloadJobDetail).
		First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) List(ctx context.Context, userID uuid.UUID, sort SortConfig) ([]domain.Job, error) {
	var jobs []domain.Job
	err := r.db.WithContext(ctx).
		Scopes(OwnedBy(userID)).
		Order(BuildOrderClause(sort, jobSortFields, "updated_at")).
		Find(&jobs).Error
	return jobs, err
}

// ListDetailed returns every owned job with budgets and costs, oldest first
func (r *JobRepository) ListDetailed(ctx context.Context, userID uuid.UUID) ([]domain.Job, error) {
	var jobs []domain.Job
	err := r.db.WithContext(ctx).
		Scopes(OwnedBy(userID)).
		Scopes(preloadJobDetail).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}

// UpdateStatus stores the status and any start/end date stamped by the transition
func (r *JobRepository) UpdateStatus(ctx context.Context, job *domain.Job) error {
	result := r.db.WithContext(ctx).Model(&domain.Job{}).
		Where("id = ? AND user_id = ?", job.ID, job.UserID).
		Updates(map[string]interface{}{
			"status":     job.Status,
			"start_date": job.StartDate,
			"end_date":   job.EndDate,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *JobRepository) AddCost(ctx context.Context, cost *domain.JobCost) error {
	return r.db.WithContext(ctx).Omit("CostCode").Create(cost).Error
}

func preloadJobDetail(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Budgets", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Costs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Costs.CostCode")
}
