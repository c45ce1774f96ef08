package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmarceau/shopstream-backend/api/responses"
	"github.com/dmarceau/shopstream-backend/internal/analytics"
	pkgerrors "github.com/dmarceau/shopstream-backend/pkg/errors"
	"github.com/dmarceau/shopstream-backend/pkg/logger"
)

const dailySalesDefaultDays = 7

// AnalyticsSummary serves the storefront-wide counters.
func AnalyticsSummary(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// DailySales serves per-day sales buckets. Defaults to the trailing week.
func DailySales(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		to := time.Now().UTC()
		from := to.Add(-dailySalesDefaultDays * 24 * time.Hour)

		var err error
		if from, err = parseQueryDate(r, "from", from); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if to, err = parseQueryDate(r, "to", to); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		buckets, err := svc.DailySales(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, buckets)
	}
}

func parseQueryDate(r *http.Request, key string, defaultVal time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "date must use YYYY-MM-DD").
			WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
