package coupons

import (
	"time"

	"github.com/dmarceau/shopstream-backend/pkg/db/models"
)

// CouponDTO is the client-visible coupon shape.
type CouponDTO struct {
	Code               string    `json:"code"`
	DiscountPercentage int       `json:"discount_percentage"`
	ExpirationDate     time.Time `json:"expiration_date"`
}

func toDTO(c models.Coupon) CouponDTO {
	return CouponDTO{
		Code:               c.Code,
		DiscountPercentage: c.DiscountPercentage,
		ExpirationDate:     c.ExpirationDate,
	}
}
