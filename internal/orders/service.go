package orders

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarceau/shopstream-backend/internal/coupons"
	"github.com/dmarceau/shopstream-backend/internal/pricing"
	"github.com/dmarceau/shopstream-backend/pkg/db/models"
	pkgerrors "github.com/dmarceau/shopstream-backend/pkg/errors"
	"github.com/dmarceau/shopstream-backend/pkg/logger"
	"github.com/dmarceau/shopstream-backend/pkg/pagination"
)

// giftThresholdCents is the order total that earns the buyer a gift coupon.
const giftThresholdCents = 20000

// Service confirms checkouts and reads order history.
type Service interface {
	Confirm(ctx context.Context, userID uuid.UUID) (*OrderDTO, error)
	History(ctx context.Context, userID uuid.UUID, page pagination.Params) (*HistoryPage, error)
}

// HistoryPage is one cursor-paginated slice of a user's order history.
type HistoryPage struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// PaymentGateway authorizes the charge for a priced cart. Implementations
// must be idempotent per quote since a confirm may be retried.
type PaymentGateway interface {
	Charge(ctx context.Context, userID uuid.UUID, quote *pricing.Quote) error
}

// NoopGateway approves every charge. It stands in until a real processor
// is wired behind PaymentGateway.
type NoopGateway struct{}

func (NoopGateway) Charge(context.Context, uuid.UUID, *pricing.Quote) error { return nil }

type cartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*pricing.Quote, error)
	Clear(ctx context.Context, userID uuid.UUID) (*pricing.Quote, error)
}

type giftGranter interface {
	GrantGiftCoupon(ctx context.Context, userID uuid.UUID) (*coupons.CouponDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build an orders service.
type ServiceParams struct {
	Repo    *Repository
	Tx      txRunner
	Cart    cartService
	Coupons giftGranter
	Gateway PaymentGateway
	Logger  *logger.Logger
}

type service struct {
	repo    *Repository
	tx      txRunner
	cart    cartService
	coupons giftGranter
	gateway PaymentGateway
	logger  *logger.Logger
}

// NewService constructs an orders service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repository is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart service is required")
	}
	if params.Coupons == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupons service is required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment gateway is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		cart:    params.Cart,
		coupons: params.Coupons,
		gateway: params.Gateway,
		logger:  params.Logger,
	}, nil
}

// Confirm charges the priced cart, writes the order snapshot, and empties
// the cart. Totals are recomputed server side immediately before charging
// so a stale client quote can never set the price.
func (s *service) Confirm(ctx context.Context, userID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	quote, err := s.cart.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(quote.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	if err := s.gateway.Charge(ctx, userID, quote); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "charge payment")
	}

	linesJSON, err := json.Marshal(quote.Lines)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order lines")
	}

	order := &models.Order{
		UserID:        userID,
		SubtotalCents: quote.SubtotalCents,
		DiscountCents: quote.DiscountCents,
		TotalCents:    quote.TotalCents,
		CouponCode:    quote.CouponCode,
		LinesJSON:     string(linesJSON),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).Create(ctx, order)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}

	if _, err := s.cart.Clear(ctx, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart after checkout")
	}

	if quote.TotalCents >= giftThresholdCents {
		if _, err := s.coupons.GrantGiftCoupon(ctx, userID); err != nil {
			// The order is already paid and recorded, so a failed perk only
			// gets logged.
			s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "gift coupon grant failed")
		}
	}

	dto := toDTO(*order)
	return &dto, nil
}

// History returns one page of the user's confirmed orders, newest first.
func (s *service) History(ctx context.Context, userID uuid.UUID, page pagination.Params) (*HistoryPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(page.Limit)
	rows, err := s.repo.ListByUser(ctx, userID, pagination.LimitWithBuffer(page.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	result := &HistoryPage{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	result.Orders = toDTOs(rows)
	return result, nil
}
