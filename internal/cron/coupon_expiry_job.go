package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/dmarceau/shopstream-backend/pkg/logger"
)

const (
	defaultCouponExpiryBatch = 500
	// maxCouponExpiryBatches caps a single run so a bad clock or a huge
	// backlog cannot hold the worker forever.
	maxCouponExpiryBatches = 200
)

type couponExpiryRepo interface {
	DeactivateExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}

// CouponExpiryJobParams configure the coupon expiry sweep.
type CouponExpiryJobParams struct {
	Logger    *logger.Logger
	Repo      couponExpiryRepo
	BatchSize int
}

// NewCouponExpiryJob builds the job that deactivates expired coupons in batches.
func NewCouponExpiryJob(params CouponExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultCouponExpiryBatch
	}
	return &couponExpiryJob{
		logg:  params.Logger,
		repo:  params.Repo,
		batch: batch,
		now:   time.Now,
	}, nil
}

type couponExpiryJob struct {
	logg  *logger.Logger
	repo  couponExpiryRepo
	batch int
	now   func() time.Time
}

func (j *couponExpiryJob) Name() string { return "coupon-expiry" }

func (j *couponExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	var (
		deactivated int64
		errs        []error
	)
	for i := 0; i < maxCouponExpiryBatches; i++ {
		rows, err := j.repo.DeactivateExpired(ctx, cutoff, j.batch)
		if err != nil {
			errs = append(errs, fmt.Errorf("deactivate batch %d: %w", i+1, err))
			break
		}
		deactivated += rows
		if rows < int64(j.batch) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":      cutoff,
		"batch_size":  j.batch,
		"deactivated": deactivated,
	})
	j.logg.Info(logCtx, "coupon expiry sweep complete")
	return multierr.Combine(errs...)
}
