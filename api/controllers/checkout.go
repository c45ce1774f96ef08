package controllers

import (
	"net/http"

	"github.com/dmarceau/shopstream-backend/api/middleware"
	"github.com/dmarceau/shopstream-backend/api/responses"
	"github.com/dmarceau/shopstream-backend/api/validators"
	ordersvc "github.com/dmarceau/shopstream-backend/internal/orders"
	"github.com/dmarceau/shopstream-backend/pkg/logger"
	"github.com/dmarceau/shopstream-backend/pkg/pagination"
)

// ConfirmCheckout charges the cart and writes the order snapshot.
func ConfirmCheckout(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Confirm(r.Context(), middleware.UserUUIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderHistory lists one page of the user's confirmed orders.
func OrderHistory(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.History(r.Context(), middleware.UserUUIDFromContext(r.Context()), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
