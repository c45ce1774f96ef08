package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coupon is a flat-percentage discount owned by one user. Applying a coupon
// never mutates this row; the applied reference is cart-scoped state.
type Coupon struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code               string    `gorm:"column:code;not null;uniqueIndex:idx_coupons_user_code"`
	UserID             uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_coupons_user_code"`
	DiscountPercentage int       `gorm:"column:discount_percentage;not null"`
	ExpirationDate     time.Time `gorm:"column:expiration_date;not null"`
	IsActive           bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ValidAt reports whether the coupon can discount a cart at the given time.
func (c *Coupon) ValidAt(now time.Time) bool {
	return c.IsActive && now.Before(c.ExpirationDate)
}
