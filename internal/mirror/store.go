// Package mirror keeps a client-side copy of cart and coupon state that is
// reconciled against the authoritative backend after every mutation. The
// mirror never invents state: a mutation is first issued to the backend, and
// only an acknowledged success updates the local copy, either by an
// optimistic patch (add) or by wholesale replacement with the server's
// representation (everything else).
package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/dmarceau/shopstream-backend/internal/coupons"
	"github.com/dmarceau/shopstream-backend/internal/pricing"
	"github.com/dmarceau/shopstream-backend/pkg/db/models"
	pkgerrors "github.com/dmarceau/shopstream-backend/pkg/errors"
	"github.com/google/uuid"
)

// Backend is the authoritative cart/coupon API the mirror reconciles with.
type Backend interface {
	FetchCart(ctx context.Context) (*pricing.Quote, error)
	AddItem(ctx context.Context, productID uuid.UUID) error
	SetQuantity(ctx context.Context, productID uuid.UUID, qty int) (*pricing.Quote, error)
	RemoveItem(ctx context.Context, productID uuid.UUID) (*pricing.Quote, error)
	ClearCart(ctx context.Context) error
	ApplyCoupon(ctx context.Context, code string) (*coupons.CouponDTO, error)
	RemoveCoupon(ctx context.Context) error
}

// ProductSnapshot is the denormalized product data captured at add time.
type ProductSnapshot struct {
	ID         uuid.UUID
	Name       string
	ImageURL   string
	PriceCents int64
}

// State is the mirrored cart view plus its locally recomputed totals.
type State struct {
	Lines         []pricing.Line
	Coupon        *coupons.CouponDTO
	SubtotalCents int64
	DiscountCents int64
	TotalCents    int64
}

// Store holds the mirrored state behind a single mutex; one mutation settles
// before the next reads local state.
type Store struct {
	mu      sync.Mutex
	backend Backend
	state   State
}

// NewStore builds an empty mirror bound to the backend.
func NewStore(backend Backend) (*Store, error) {
	if backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backend is required")
	}
	return &Store{backend: backend}, nil
}

// Snapshot returns a copy of the current mirrored state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

// Refresh replaces the mirror wholesale with the server's cart.
func (s *Store) Refresh(ctx context.Context) (State, error) {
	quote, err := s.backend.FetchCart(ctx)
	if err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceFromQuote(quote)
	return s.copyState(), nil
}

// AddToCart issues the authoritative add, then applies the optimistic local
// patch: an existing line is incremented, otherwise a new line is appended
// with the product snapshot taken at add time. A failed call leaves the
// mirror at its pre-call state.
func (s *Store) AddToCart(ctx context.Context, product ProductSnapshot) (State, error) {
	if product.ID == uuid.Nil {
		return s.Snapshot(), pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.backend.AddItem(ctx, product.ID); err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := applyAdd(s.state.Lines, product)
	s.state.Lines = next
	s.recompute()
	return s.copyState(), nil
}

// SetQuantity sets a line quantity; zero behaves exactly like RemoveFromCart.
// Local state is replaced with the server's returned cart.
func (s *Store) SetQuantity(ctx context.Context, productID uuid.UUID, qty int) (State, error) {
	if qty == 0 {
		return s.RemoveFromCart(ctx, productID)
	}

	quote, err := s.backend.SetQuantity(ctx, productID, qty)
	if err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceFromQuote(quote)
	return s.copyState(), nil
}

// RemoveFromCart removes the line and replaces local state with the server's
// returned cart.
func (s *Store) RemoveFromCart(ctx context.Context, productID uuid.UUID) (State, error) {
	quote, err := s.backend.RemoveItem(ctx, productID)
	if err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceFromQuote(quote)
	return s.copyState(), nil
}

// ClearCart empties the mirror, including the applied coupon, after the
// server acknowledges the clear.
func (s *Store) ClearCart(ctx context.Context) (State, error) {
	if err := s.backend.ClearCart(ctx); err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	return s.copyState(), nil
}

// ApplyCoupon validates the code with the server and mirrors the accepted
// coupon. Applying replaces any mirrored coupon, it never stacks.
func (s *Store) ApplyCoupon(ctx context.Context, code string) (State, error) {
	coupon, err := s.backend.ApplyCoupon(ctx, code)
	if err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Coupon = coupon
	s.recompute()
	return s.copyState(), nil
}

// RemoveCoupon clears the mirrored coupon once the server acknowledges.
func (s *Store) RemoveCoupon(ctx context.Context) (State, error) {
	if err := s.backend.RemoveCoupon(ctx); err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Coupon = nil
	s.recompute()
	return s.copyState(), nil
}

// applyAdd is the pure update function for an optimistic add.
func applyAdd(lines []pricing.Line, product ProductSnapshot) []pricing.Line {
	next := make([]pricing.Line, len(lines))
	copy(next, lines)
	for i := range next {
		if next[i].ProductID == product.ID {
			next[i].Quantity++
			return next
		}
	}
	return append(next, pricing.Line{
		ProductID:      product.ID,
		Name:           product.Name,
		ImageURL:       product.ImageURL,
		UnitPriceCents: product.PriceCents,
		Quantity:       1,
	})
}

// recompute rebuilds the totals from the mirrored lines and coupon with the
// same formula the server uses, so displayed and authoritative totals match.
func (s *Store) recompute() {
	var coupon *models.Coupon
	if s.state.Coupon != nil {
		// The mirrored expiry always comes from the server, so local
		// recomputes age out a coupon exactly when the backend would.
		coupon = &models.Coupon{
			Code:               s.state.Coupon.Code,
			DiscountPercentage: s.state.Coupon.DiscountPercentage,
			ExpirationDate:     s.state.Coupon.ExpirationDate,
			IsActive:           true,
		}
	}
	quote := pricing.Compute(s.state.Lines, coupon, time.Now())
	s.state.SubtotalCents = quote.SubtotalCents
	s.state.DiscountCents = quote.DiscountCents
	s.state.TotalCents = quote.TotalCents
}

func (s *Store) replaceFromQuote(quote *pricing.Quote) {
	s.state.Lines = append([]pricing.Line(nil), quote.Lines...)
	if quote.CouponCode == nil {
		s.state.Coupon = nil
	} else {
		coupon := &coupons.CouponDTO{
			Code:               *quote.CouponCode,
			DiscountPercentage: quote.DiscountPercentage,
		}
		if quote.CouponExpiresAt != nil {
			coupon.ExpirationDate = *quote.CouponExpiresAt
		} else if s.state.Coupon != nil && s.state.Coupon.Code == coupon.Code {
			coupon.ExpirationDate = s.state.Coupon.ExpirationDate
		}
		s.state.Coupon = coupon
	}
	s.state.SubtotalCents = quote.SubtotalCents
	s.state.DiscountCents = quote.DiscountCents
	s.state.TotalCents = quote.TotalCents
}

func (s *Store) copyState() State {
	out := s.state
	out.Lines = append([]pricing.Line(nil), s.state.Lines...)
	if s.state.Coupon != nil {
		coupon := *s.state.Coupon
		out.Coupon = &coupon
	}
	return out
}
