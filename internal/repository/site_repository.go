package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"gorm.io/gorm"
)

var siteSortFields = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type SiteRepository struct {
	db *gorm.DB
}

func NewSiteRepository(db *gorm.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

func (r *SiteRepository) Create(ctx context.Context, site *domain.Site) error {
	return r.db.WithContext(ctx).Create(site).Error
}

// GetByID returns the site when it is owned by userID
func (r *SiteRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Site, error) {
	var site domain.Site
	err := r.db.WithContext(ctx).Scopes(OwnedBy(userID)).First(&site, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *SiteRepository) List(ctx context.Context, userID uuid.UUID, sort SortConfig) ([]domain.Site, error) {
	var sites []domain.Site
	err := r.db.WithContext(ctx).
		Scopes(OwnedBy(userID)).
		Order(BuildOrderClause(sort, siteSortFields, "updated_at")).
		Find(&sites).Error
	return sites, err
}

// Delete removes the site and its objects. Estimates keep their rows with site_id cleared.
func (r *SiteRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Estimate{}).
			Where("site_id = ? AND user_id = ?", id, userID).
			Update("site_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach estimates: %w", err)
		}
		if err := tx.Where("site_id = ?", id).Delete(&domain.SiteObject{}).Error; err != nil {
			return fmt.Errorf("failed to delete site objects: %w", err)
		}
		result := tx.Scopes(OwnedBy(userID)).Delete(&domain.Site{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *SiteRepository) ListObjects(ctx context.Context, siteID uuid.UUID) ([]domain.SiteObject, error) {
	var objects []domain.SiteObject
	err := r.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Order("created_at ASC").
		Find(&objects).Error
	return objects, err
}

// ReplaceObjects deletes every object of the site and inserts objects in one transaction
func (r *SiteRepository) ReplaceObjects(ctx context.Context, siteID uuid.UUID, objects []domain.SiteObject) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("site_id = ?", siteID).Delete(&domain.SiteObject{}).Error; err != nil {
			return fmt.Errorf("failed to clear site objects: %w", err)
		}
		if len(objects) == 0 {
			return nil
		}
		for i := range objects {
			objects[i].SiteID = siteID
		}
		if err := tx.Create(&objects).Error; err != nil {
			return fmt.Errorf("failed to insert site objects: %w", err)
		}
		return nil
	})
}
