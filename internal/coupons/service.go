package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmarceau/shopstream-backend/pkg/db/models"
	pkgerrors "github.com/dmarceau/shopstream-backend/pkg/errors"
	"github.com/dmarceau/shopstream-backend/pkg/logger"
	redisclient "github.com/dmarceau/shopstream-backend/pkg/redis"
	"github.com/dmarceau/shopstream-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	giftCouponPrefix     = "GIFT-"
	giftCouponCodeLen    = 8
	giftCouponPercentage = 10
	giftCouponValidity   = 30 * 24 * time.Hour
)

// Service exposes coupon lookup, application, and granting.
type Service interface {
	GetForUser(ctx context.Context, userID uuid.UUID) ([]CouponDTO, error)
	Validate(ctx context.Context, userID uuid.UUID, code string) (*CouponDTO, error)
	Apply(ctx context.Context, userID uuid.UUID, code string) (*CouponDTO, error)
	Remove(ctx context.Context, userID uuid.UUID) error
	Applied(ctx context.Context, userID uuid.UUID) (*models.Coupon, error)
	GrantGiftCoupon(ctx context.Context, userID uuid.UUID) (*CouponDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type appliedStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type appliedKeyer interface {
	AppliedCouponKey(userID string) string
}

// ServiceParams groups dependencies for the coupon service.
type ServiceParams struct {
	Repo    *Repository
	Tx      txRunner
	Applied appliedStore
	Keyer   appliedKeyer
	Logger  *logger.Logger
}

type service struct {
	repo  *Repository
	tx    txRunner
	store appliedStore
	keyer appliedKeyer
	logg  *logger.Logger
	nowFn func() time.Time
}

// NewService constructs a coupon service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if params.Applied == nil || params.Keyer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "applied coupon store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:  params.Repo,
		tx:    params.Tx,
		store: params.Applied,
		keyer: params.Keyer,
		logg:  params.Logger,
		nowFn: time.Now,
	}, nil
}

// GetForUser returns the user's active coupons.
func (s *service) GetForUser(ctx context.Context, userID uuid.UUID) ([]CouponDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	out := make([]CouponDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

// Validate checks the code against the user's coupons without applying it.
// An expired-but-active coupon is deactivated on sight and rejected.
func (s *service) Validate(ctx context.Context, userID uuid.UUID, code string) (*CouponDTO, error) {
	coupon, err := s.lookupValid(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*coupon)
	return &dto, nil
}

// Apply validates the code and sets it as the cart's applied coupon. Applying
// replaces any previously applied coupon, it never stacks.
func (s *service) Apply(ctx context.Context, userID uuid.UUID, code string) (*CouponDTO, error) {
	coupon, err := s.lookupValid(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	key := s.keyer.AppliedCouponKey(userID.String())
	if err := s.store.Set(ctx, key, coupon.Code, 0); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store applied coupon")
	}
	dto := toDTO(*coupon)
	return &dto, nil
}

// Remove clears the applied-coupon reference. Removing when nothing is
// applied is not an error.
func (s *service) Remove(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.store.Del(ctx, s.keyer.AppliedCouponKey(userID.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear applied coupon")
	}
	return nil
}

// Applied resolves the user's currently applied coupon, or nil when none is
// applied. A reference to a coupon that has since expired or vanished is
// cleared and treated as no coupon.
func (s *service) Applied(ctx context.Context, userID uuid.UUID) (*models.Coupon, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	key := s.keyer.AppliedCouponKey(userID.String())
	code, err := s.store.Get(ctx, key)
	if err != nil {
		if redisclient.IsNil(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read applied coupon")
	}

	coupon, err := s.repo.FindByCodeAndUser(ctx, code, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.clearRef(ctx, key)
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load applied coupon")
	}

	if !coupon.ValidAt(s.nowFn()) {
		s.deactivate(ctx, coupon)
		s.clearRef(ctx, key)
		return nil, nil
	}
	return coupon, nil
}

// GrantGiftCoupon deactivates the user's prior coupons and issues a fresh
// gift coupon valid for thirty days.
func (s *service) GrantGiftCoupon(ctx context.Context, userID uuid.UUID) (*CouponDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	suffix, err := security.GenerateCouponCode(giftCouponCodeLen)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate coupon code")
	}

	coupon := &models.Coupon{
		Code:               giftCouponPrefix + suffix,
		UserID:             userID,
		DiscountPercentage: giftCouponPercentage,
		ExpirationDate:     s.nowFn().Add(giftCouponValidity),
		IsActive:           true,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DeactivateByUser(ctx, userID); err != nil {
			return err
		}
		_, err := txRepo.Create(ctx, coupon)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant gift coupon")
	}

	dto := toDTO(*coupon)
	return &dto, nil
}

func (s *service) lookupValid(ctx context.Context, userID uuid.UUID, code string) (*models.Coupon, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCodeAndUser(ctx, code, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if !coupon.ValidAt(s.nowFn()) {
		s.deactivate(ctx, coupon)
		return nil, pkgerrors.New(pkgerrors.CodeCouponRejected, "coupon expired or inactive")
	}
	return coupon, nil
}

func (s *service) deactivate(ctx context.Context, coupon *models.Coupon) {
	if !coupon.IsActive {
		return
	}
	coupon.IsActive = false
	if err := s.repo.Save(ctx, coupon); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "deactivate expired coupon failed")
	}
}

func (s *service) clearRef(ctx context.Context, key string) {
	if err := s.store.Del(ctx, key); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "clear stale coupon reference failed")
	}
}
