package cart

import (
	"context"
	"errors"
	"time"

	"github.com/dmarceau/shopstream-backend/internal/pricing"
	"github.com/dmarceau/shopstream-backend/pkg/db/models"
	pkgerrors "github.com/dmarceau/shopstream-backend/pkg/errors"
	"github.com/dmarceau/shopstream-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes cart mutations scoped to one authenticated user. Every
// operation returns the freshly recomputed quote for the cart.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*pricing.Quote, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*pricing.Quote, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*pricing.Quote, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*pricing.Quote, error)
	Clear(ctx context.Context, userID uuid.UUID) (*pricing.Quote, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type couponResolver interface {
	Applied(ctx context.Context, userID uuid.UUID) (*models.Coupon, error)
	Remove(ctx context.Context, userID uuid.UUID) error
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Repo     *Repository
	Products productLoader
	Coupons  couponResolver
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	products productLoader
	coupons  couponResolver
	logg     *logger.Logger
}

// NewService constructs a cart service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product loader is required")
	}
	if params.Coupons == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon resolver is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		coupons:  params.Coupons,
		logg:     params.Logger,
	}, nil
}

// Get recomputes and returns the current cart quote.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*pricing.Quote, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return s.quote(ctx, userID)
}

// AddItem merges qty into the user's line for the product. An existing line
// is incremented, never duplicated.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*pricing.Quote, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty <= 0 {
		qty = 1
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if err := s.repo.UpsertIncrement(ctx, userID, productID, qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return s.quote(ctx, userID)
}

// SetQuantity overwrites the line quantity. Setting zero removes the line,
// exactly as RemoveItem would.
func (s *service) SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*pricing.Quote, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	if qty == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	updated, err := s.repo.SetQuantity(ctx, userID, productID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set cart quantity")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return s.quote(ctx, userID)
}

// RemoveItem deletes the line if present. Removing an absent line is a no-op.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*pricing.Quote, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.repo.DeleteItem(ctx, userID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.quote(ctx, userID)
}

// Clear empties the cart and drops the applied coupon reference; coupon state
// is cart-scoped, not independent.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*pricing.Quote, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.repo.DeleteAll(ctx, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	if err := s.coupons.Remove(ctx, userID); err != nil {
		return nil, err
	}
	return s.quote(ctx, userID)
}

// quote denormalizes lines against the current catalog, resolves the applied
// coupon, and recomputes pricing from scratch. Lines whose product has been
// deleted from the catalog are dropped.
func (s *service) quote(ctx context.Context, userID uuid.UUID) (*pricing.Quote, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}

	lines := make([]pricing.Line, 0, len(rows))
	for _, row := range rows {
		product, err := s.products.FindByID(ctx, row.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if delErr := s.repo.DeleteItem(ctx, userID, row.ProductID); delErr != nil {
					s.logg.Warn(s.logg.WithField(ctx, "error", delErr.Error()), "drop orphaned cart line failed")
				}
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart product")
		}
		lines = append(lines, pricing.Line{
			ProductID:      product.ID,
			Name:           product.Name,
			ImageURL:       product.ImageURL,
			UnitPriceCents: product.PriceCents,
			Quantity:       row.Quantity,
		})
	}

	coupon, err := s.coupons.Applied(ctx, userID)
	if err != nil {
		return nil, err
	}

	quote := pricing.Compute(lines, coupon, time.Now())
	return &quote, nil
}
