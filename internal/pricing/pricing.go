package pricing

import (
	"time"

	"github.com/dmarceau/shopstream-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one cart entry priced at the catalog's current unit price.
type Line struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	ImageURL       string    `json:"image_url"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
}

// TotalCents returns the extended price for the line.
func (l Line) TotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// Quote is the full derived pricing for a cart. It is recomputed from the
// lines and the applied coupon on every read, never patched incrementally.
type Quote struct {
	Lines              []Line  `json:"lines"`
	SubtotalCents      int64   `json:"subtotal_cents"`
	DiscountCents      int64   `json:"discount_cents"`
	TotalCents         int64   `json:"total_cents"`
	CouponCode         *string    `json:"coupon_code,omitempty"`
	DiscountPercentage int        `json:"discount_percentage"`
	CouponExpiresAt    *time.Time `json:"coupon_expires_at,omitempty"`
}

// Compute derives the quote for the given lines. A nil coupon, or one that is
// inactive or expired at now, contributes no discount and the total equals the
// subtotal. The discount is subtotal * pct / 100 rounded half-up to a cent.
func Compute(lines []Line, coupon *models.Coupon, now time.Time) Quote {
	quote := Quote{Lines: lines}
	if quote.Lines == nil {
		quote.Lines = []Line{}
	}

	for _, line := range lines {
		quote.SubtotalCents += line.TotalCents()
	}

	if coupon != nil && coupon.ValidAt(now) {
		expiry := coupon.ExpirationDate
		quote.CouponCode = &coupon.Code
		quote.DiscountPercentage = coupon.DiscountPercentage
		quote.CouponExpiresAt = &expiry
		quote.DiscountCents = discountCents(quote.SubtotalCents, coupon.DiscountPercentage)
	}

	quote.TotalCents = quote.SubtotalCents - quote.DiscountCents
	return quote
}

func discountCents(subtotalCents int64, pct int) int64 {
	if subtotalCents <= 0 || pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return subtotalCents
	}
	return decimal.NewFromInt(subtotalCents).
		Mul(decimal.NewFromInt(int64(pct))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
