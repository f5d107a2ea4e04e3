package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CostCodeRepository struct {
	db *gorm.DB
}

func NewCostCodeRepository(db *gorm.DB) *CostCodeRepository {
	return &CostCodeRepository{db: db}
}

func (r *CostCodeRepository) List(ctx context.Context, userID uuid.UUID) ([]domain.CostCode, error) {
	var codes []domain.CostCode
	err := r.db.WithContext(ctx).
		Scopes(OwnedBy(userID)).
		Order("code ASC").
		Find(&codes).Error
	return codes, err
}

func (r *CostCodeRepository) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.CostCode{}).Scopes(OwnedBy(userID)).Count(&count).Error
	return count, err
}

// GetByID returns the cost code when it is owned by userID
func (r *CostCodeRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.CostCode, error) {
	var code domain.CostCode
	err := r.db.WithContext(ctx).Scopes(OwnedBy(userID)).First(&code, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// CreateMissing inserts codes, skipping any (user_id, code) pair that already exists
func (r *CostCodeRepository) CreateMissing(ctx context.Context, codes []domain.CostCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "code"}},
			DoNothing: true,
		}).
		Create(&codes).Error
}
