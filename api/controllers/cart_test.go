package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dmarceau/shopstream-backend/api/middleware"
	"github.com/dmarceau/shopstream-backend/internal/pricing"
	pkgerrors "github.com/dmarceau/shopstream-backend/pkg/errors"
	"github.com/dmarceau/shopstream-backend/pkg/logger"
)

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard})
}

type stubCartService struct {
	quote *pricing.Quote
	err   error

	addCalls   int
	lastQty    int
	setCalls   int
	clearCalls int
}

func (s *stubCartService) Get(context.Context, uuid.UUID) (*pricing.Quote, error) {
	return s.quote, s.err
}

func (s *stubCartService) AddItem(_ context.Context, _ uuid.UUID, _ uuid.UUID, qty int) (*pricing.Quote, error) {
	s.addCalls++
	s.lastQty = qty
	return s.quote, s.err
}

func (s *stubCartService) SetQuantity(_ context.Context, _ uuid.UUID, _ uuid.UUID, qty int) (*pricing.Quote, error) {
	s.setCalls++
	s.lastQty = qty
	return s.quote, s.err
}

func (s *stubCartService) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (*pricing.Quote, error) {
	return s.quote, s.err
}

func (s *stubCartService) Clear(context.Context, uuid.UUID) (*pricing.Quote, error) {
	s.clearCalls++
	return s.quote, s.err
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	return req
}

func TestGetCartReturnsQuote(t *testing.T) {
	svc := &stubCartService{quote: &pricing.Quote{SubtotalCents: 2550, DiscountCents: 510, TotalCents: 2040}}
	handler := GetCart(svc, discardLogger())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data pricing.Quote `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalCents != 2040 {
		t.Fatalf("unexpected total %d", envelope.Data.TotalCents)
	}
}

func TestAddCartItemValidatesBody(t *testing.T) {
	svc := &stubCartService{quote: &pricing.Quote{}}
	handler := AddCartItem(svc, discardLogger())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart", `{}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.addCalls != 0 {
		t.Fatal("invalid body must not reach the service")
	}
}

func TestAddCartItemPassesQuantity(t *testing.T) {
	svc := &stubCartService{quote: &pricing.Quote{}}
	handler := AddCartItem(svc, discardLogger())
	body := `{"product_id":"` + uuid.NewString() + `","quantity":3}`

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/cart", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.addCalls != 1 || svc.lastQty != 3 {
		t.Fatalf("expected one add with qty 3, got %d/%d", svc.addCalls, svc.lastQty)
	}
}

func TestGetCartUnauthorizedWithoutPrincipal(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")}
	handler := GetCart(svc, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestClearCartInvokesService(t *testing.T) {
	svc := &stubCartService{quote: &pricing.Quote{}}
	handler := ClearCart(svc, discardLogger())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodDelete, "/api/v1/cart/clear", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.clearCalls != 1 {
		t.Fatalf("expected one clear, got %d", svc.clearCalls)
	}
}
