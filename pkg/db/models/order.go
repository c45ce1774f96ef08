package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is the immutable snapshot written when a checkout is confirmed.
type Order struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	SubtotalCents int64     `gorm:"column:subtotal_cents;not null"`
	DiscountCents int64     `gorm:"column:discount_cents;not null;default:0"`
	TotalCents    int64     `gorm:"column:total_cents;not null"`
	CouponCode    *string   `gorm:"column:coupon_code"`
	LinesJSON     string    `gorm:"column:lines_json;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
