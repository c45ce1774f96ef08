package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dmarceau/shopstream-backend/internal/pricing"
	"github.com/dmarceau/shopstream-backend/pkg/db/models"
)

// OrderDTO is the transport shape of a confirmed checkout.
type OrderDTO struct {
	ID            uuid.UUID      `json:"id"`
	SubtotalCents int64          `json:"subtotal_cents"`
	DiscountCents int64          `json:"discount_cents"`
	TotalCents    int64          `json:"total_cents"`
	CouponCode    *string        `json:"coupon_code,omitempty"`
	Lines         []pricing.Line `json:"lines"`
	CreatedAt     time.Time      `json:"created_at"`
}

func toDTO(o models.Order) OrderDTO {
	dto := OrderDTO{
		ID:            o.ID,
		SubtotalCents: o.SubtotalCents,
		DiscountCents: o.DiscountCents,
		TotalCents:    o.TotalCents,
		CouponCode:    o.CouponCode,
		CreatedAt:     o.CreatedAt,
	}
	// A snapshot that fails to decode still surfaces the totals.
	_ = json.Unmarshal([]byte(o.LinesJSON), &dto.Lines)
	return dto
}

func toDTOs(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out
}
