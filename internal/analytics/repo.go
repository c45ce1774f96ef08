package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dmarceau/shopstream-backend/pkg/db/models"
)

// Repository runs the read-only aggregate queries behind the admin dashboard.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an analytics repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CountUsers returns the number of registered accounts.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// CountProducts returns the number of catalog rows.
func (r *Repository) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error
	return count, err
}

type orderTotals struct {
	Orders       int64
	RevenueCents int64
}

// OrderTotals returns the order count and revenue across all confirmed orders.
func (r *Repository) OrderTotals(ctx context.Context) (int64, int64, error) {
	var totals orderTotals
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COUNT(*) AS orders, COALESCE(SUM(total_cents), 0) AS revenue_cents").
		Scan(&totals).Error
	if err != nil {
		return 0, 0, err
	}
	return totals.Orders, totals.RevenueCents, nil
}

// OrdersBetween loads the orders confirmed in [from, to) for daily bucketing.
func (r *Repository) OrdersBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Select("created_at", "total_cents").
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
