package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"gorm.io/gorm"
)

// TokenRepository persists single-use verification and password reset tokens
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) CreateVerification(ctx context.Context, token *domain.VerificationToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *TokenRepository) GetVerificationByHash(ctx context.Context, hash string) (*domain.VerificationToken, error) {
	var token domain.VerificationToken
	err := r.db.WithContext(ctx).First(&token, "token_hash = ?", hash).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// ConsumeVerification marks the token used and the user verified in one transaction.
// It fails with gorm.ErrRecordNotFound when the token was consumed concurrently.
func (r *TokenRepository) ConsumeVerification(ctx context.Context, token *domain.VerificationToken, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.VerificationToken{}).
			Where("id = ? AND used_at IS NULL", token.ID).
			Update("used_at", now)
		if result.Error != nil {
			return fmt.Errorf("failed to mark verification token used: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Model(&domain.User{}).
			Where("id = ?", token.UserID).
			Updates(map[string]interface{}{"email_verified_at": now, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("failed to mark user verified: %w", err)
		}
		return nil
	})
}

func (r *TokenRepository) CreatePasswordReset(ctx context.Context, token *domain.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *TokenRepository) GetPasswordResetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error) {
	var token domain.PasswordResetToken
	err := r.db.WithContext(ctx).First(&token, "token_hash = ?", hash).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// ConsumePasswordReset stores the new password hash and marks the token used in one transaction
func (r *TokenRepository) ConsumePasswordReset(ctx context.Context, token *domain.PasswordResetToken, passwordHash string, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.PasswordResetToken{}).
			Where("id = ? AND used_at IS NULL", token.ID).
			Update("used_at", now)
		if result.Error != nil {
			return fmt.Errorf("failed to mark reset token used: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Model(&domain.User{}).
			Where("id = ?", token.UserID).
			Updates(map[string]interface{}{"password_hash": passwordHash, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return nil
	})
}

// DeleteStale removes tokens that expired, or were used, before cutoff.
// Returns the number of rows removed across both tables.
func (r *TokenRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&domain.VerificationToken{}, &domain.PasswordResetToken{}} {
			result := tx.Where("expires_at < ? OR used_at < ?", cutoff, cutoff).Delete(model)
			if result.Error != nil {
				return result.Error
			}
			total += result.RowsAffected
		}
		return nil
	})
	return total, err
}
