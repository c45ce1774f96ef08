package coupons

import (
	"context"
	"time"

	"github.com/dmarceau/shopstream-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates coupon persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByCodeAndUser loads the user's coupon with the given code.
func (r *Repository) FindByCodeAndUser(ctx context.Context, code string, userID uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).
		First(&coupon, "code = ? AND user_id = ?", code, userID).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ListActiveByUser returns the user's active coupons, newest first.
func (r *Repository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Coupon, error) {
	var rows []models.Coupon
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts a coupon row.
func (r *Repository) Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		return nil, err
	}
	return coupon, nil
}

// Save persists the full coupon row.
func (r *Repository) Save(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

// DeactivateByUser flips all of the user's active coupons off.
func (r *Repository) DeactivateByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false).Error
}

// DeactivateExpired flips at most limit expired-but-active coupons off and
// reports how many rows changed. Used by the expiry sweep.
func (r *Repository) DeactivateExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE coupons SET is_active = ?, updated_at = ?
		 WHERE id IN (
		   SELECT id FROM coupons WHERE is_active = ? AND expiration_date <= ? LIMIT ?
		 )`,
		false, now, true, now, limit,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
