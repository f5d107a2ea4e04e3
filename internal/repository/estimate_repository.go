package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/rollup"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var estimateSortFields = map[string]string{
	"title":     "title",
	"status":    "status",
	"total":     "total",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type EstimateRepository struct {
	db *gorm.DB
}

func NewEstimateRepository(db *gorm.DB) *EstimateRepository {
	return &EstimateRepository{db: db}
}

func (r *EstimateRepository) Create(ctx context.Context, estimate *domain.Estimate) error {
	return r.db.WithContext(ctx).Create(estimate).Error
}

// GetByID returns the estimate with its site when it is owned by userID
func (r *EstimateRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Estimate, error) {
	var estimate domain.Estimate
	err := r.db.WithContext(ctx).
		Scopes(OwnedBy(userID)).
		Preload("Site").
		First(&estimate, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &estimate, nil
}

// GetWithLineItems is GetByID plus line items (oldest first) and their cost codes
func (r *EstimateRepository) GetWithLineItems(ctx context.Context, userID, id uuid.UUID) (*domain.Estimate, error) {
	var estimate domain.Estimate
	err := r.db.WithContext(ctx).
		Scopes(OwnedBy(userID)).
		Preload("Site").
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("LineItems.CostCode").
		First(&estimate, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &estimate, nil
}

func (r *EstimateRepository) List(ctx context.Context, userID uuid.UUID, sort SortConfig) ([]domain.Estimate, error) {
	var estimates []domain.Estimate
	err := r.db.WithContext(ctx).
		Scopes(OwnedBy(userID)).
		Preload("Site").
		Order(BuildOrderClause(sort, estimateSortFields, "updated_at")).
		Find(&estimates).Error
	return estimates, err
}

// Update sets the given columns on an owned estimate
func (r *EstimateRepository) Update(ctx context.Context, userID, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&domain.Estimate{}).
		Scopes(OwnedBy(userID)).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes an owned estimate and its line items
func (r *EstimateRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Estimate{}).Scopes(OwnedBy(userID)).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("estimate_id = ?", id).Delete(&domain.EstimateLineItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete line items: %w", err)
		}
		return tx.Delete(&domain.Estimate{}, "id = ?", id).Error
	})
}

// AddLineItem inserts item and recomputes the estimate total in one transaction.
// Returns the new total.
func (r *EstimateRepository) AddLineItem(ctx context.Context, item *domain.EstimateLineItem) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
		var err error
		total, err = recomputeEstimateTotal(tx, item.EstimateID)
		return err
	})
	return total, err
}

// DeleteLineItem removes one line item of the estimate and recomputes the total in one transaction
func (r *EstimateRepository) DeleteLineItem(ctx context.Context, estimateID, itemID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND estimate_id = ?", itemID, estimateID).Delete(&domain.EstimateLineItem{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete line item: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		var err error
		total, err = recomputeEstimateTotal(tx, estimateID)
		return err
	})
	return total, err
}

// recomputeEstimateTotal stores the sum of the estimate's line item totals
func recomputeEstimateTotal(tx *gorm.DB, estimateID uuid.UUID) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	if err := tx.Model(&domain.EstimateLineItem{}).
		Where("estimate_id = ?", estimateID).
		Pluck("total", &totals).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to load line item totals: %w", err)
	}

	total := rollup.EstimateTotal(totals)
	if err := tx.Model(&domain.Estimate{}).
		Where("id = ?", estimateID).
		Updates(map[string]interface{}{"total": total, "updated_at": time.Now().UTC()}).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to update estimate total: %w", err)
	}
	return total, nil
}
