package analytics

import (
	"context"
	"time"

	pkgerrors "github.com/dmarceau/shopstream-backend/pkg/errors"
)

// Summary holds the storefront-wide counters shown on the admin dashboard.
type Summary struct {
	Users        int64 `json:"users"`
	Products     int64 `json:"products"`
	Orders       int64 `json:"orders"`
	RevenueCents int64 `json:"revenue_cents"`
}

// DailySales is one day's bucket of confirmed orders.
type DailySales struct {
	Date         string `json:"date"`
	Sales        int64  `json:"sales"`
	RevenueCents int64  `json:"revenue_cents"`
}

// Service provides reporting reads over the orders written at checkout.
type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	DailySales(ctx context.Context, from, to time.Time) ([]DailySales, error)
}

// ServiceParams bundles the dependencies required to build an analytics service.
type ServiceParams struct {
	Repo *Repository
}

type service struct {
	repo *Repository
}

// NewService constructs an analytics service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "analytics repository is required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	users, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users")
	}
	products, err := s.repo.CountProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count products")
	}
	orders, revenue, err := s.repo.OrderTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order totals")
	}

	return &Summary{
		Users:        users,
		Products:     products,
		Orders:       orders,
		RevenueCents: revenue,
	}, nil
}

// DailySales buckets orders per UTC day over [from, to]. Days without
// sales appear as zero rows so charts render a continuous axis.
func (s *service) DailySales(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)
	if to.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}

	rows, err := s.repo.OrdersBetween(ctx, from, to.Add(24*time.Hour))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load orders")
	}

	buckets := make(map[string]*DailySales)
	var out []DailySales
	for day := from; !day.After(to); day = day.Add(24 * time.Hour) {
		out = append(out, DailySales{Date: day.Format("2006-01-02")})
	}
	for i := range out {
		buckets[out[i].Date] = &out[i]
	}
	for _, row := range rows {
		key := row.CreatedAt.UTC().Format("2006-01-02")
		if bucket, ok := buckets[key]; ok {
			bucket.Sales++
			bucket.RevenueCents += row.TotalCents
		}
	}
	return out, nil
}
