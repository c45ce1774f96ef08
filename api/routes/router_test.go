package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dmarceau/shopstream-backend/internal/analytics"
	authsvc "github.com/dmarceau/shopstream-backend/internal/auth"
	"github.com/dmarceau/shopstream-backend/internal/catalog"
	"github.com/dmarceau/shopstream-backend/internal/coupons"
	ordersvc "github.com/dmarceau/shopstream-backend/internal/orders"
	"github.com/dmarceau/shopstream-backend/internal/pricing"
	"github.com/dmarceau/shopstream-backend/internal/users"
	pkgauth "github.com/dmarceau/shopstream-backend/pkg/auth"
	"github.com/dmarceau/shopstream-backend/pkg/auth/session"
	"github.com/dmarceau/shopstream-backend/pkg/config"
	"github.com/dmarceau/shopstream-backend/pkg/db/models"
	"github.com/dmarceau/shopstream-backend/pkg/logger"
	"github.com/dmarceau/shopstream-backend/pkg/pagination"
)

type fakeAuthService struct{}

func (fakeAuthService) Signup(context.Context, authsvc.SignupRequest) (*authsvc.TokenPair, error) {
	return &authsvc.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (fakeAuthService) Login(context.Context, authsvc.LoginRequest) (*authsvc.TokenPair, error) {
	return &authsvc.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (fakeAuthService) Refresh(context.Context, authsvc.RefreshRequest) (*authsvc.TokenPair, error) {
	return &authsvc.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (fakeAuthService) Logout(context.Context, string) error { return nil }

func (fakeAuthService) Profile(context.Context, uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: uuid.New()}, nil
}

type fakeCatalogService struct{}

func (fakeCatalogService) CreateProduct(context.Context, catalog.CreateProductInput) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{ID: uuid.New()}, nil
}

func (fakeCatalogService) UpdateProduct(context.Context, uuid.UUID, catalog.UpdateProductInput) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{ID: uuid.New()}, nil
}

func (fakeCatalogService) DeleteProduct(context.Context, uuid.UUID) error { return nil }

func (fakeCatalogService) ToggleFeatured(context.Context, uuid.UUID) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{ID: uuid.New()}, nil
}

func (fakeCatalogService) GetProduct(context.Context, uuid.UUID) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{ID: uuid.New()}, nil
}

func (fakeCatalogService) ListAll(context.Context) ([]catalog.ProductDTO, error) { return nil, nil }

func (fakeCatalogService) ListByCategory(context.Context, string) ([]catalog.ProductDTO, error) {
	return nil, nil
}

func (fakeCatalogService) ListFeatured(context.Context) ([]catalog.ProductDTO, error) {
	return nil, nil
}

func (fakeCatalogService) SampleRandom(context.Context, int) ([]catalog.ProductDTO, error) {
	return nil, nil
}

type fakeCartService struct{}

func (fakeCartService) Get(context.Context, uuid.UUID) (*pricing.Quote, error) {
	return &pricing.Quote{}, nil
}

func (fakeCartService) AddItem(context.Context, uuid.UUID, uuid.UUID, int) (*pricing.Quote, error) {
	return &pricing.Quote{}, nil
}

func (fakeCartService) SetQuantity(context.Context, uuid.UUID, uuid.UUID, int) (*pricing.Quote, error) {
	return &pricing.Quote{}, nil
}

func (fakeCartService) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (*pricing.Quote, error) {
	return &pricing.Quote{}, nil
}

func (fakeCartService) Clear(context.Context, uuid.UUID) (*pricing.Quote, error) {
	return &pricing.Quote{}, nil
}

type fakeCouponService struct{}

func (fakeCouponService) GetForUser(context.Context, uuid.UUID) ([]coupons.CouponDTO, error) {
	return nil, nil
}

func (fakeCouponService) Validate(context.Context, uuid.UUID, string) (*coupons.CouponDTO, error) {
	return &coupons.CouponDTO{}, nil
}

func (fakeCouponService) Apply(context.Context, uuid.UUID, string) (*coupons.CouponDTO, error) {
	return &coupons.CouponDTO{}, nil
}

func (fakeCouponService) Remove(context.Context, uuid.UUID) error { return nil }

func (fakeCouponService) Applied(context.Context, uuid.UUID) (*models.Coupon, error) {
	return nil, nil
}

func (fakeCouponService) GrantGiftCoupon(context.Context, uuid.UUID) (*coupons.CouponDTO, error) {
	return &coupons.CouponDTO{}, nil
}

type fakeOrderService struct{}

func (fakeOrderService) Confirm(context.Context, uuid.UUID) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{ID: uuid.New()}, nil
}

func (fakeOrderService) History(context.Context, uuid.UUID, pagination.Params) (*ordersvc.HistoryPage, error) {
	return &ordersvc.HistoryPage{}, nil
}

type fakeAnalyticsService struct{}

func (fakeAnalyticsService) Summary(context.Context) (*analytics.Summary, error) {
	return &analytics.Summary{}, nil
}

func (fakeAnalyticsService) DailySales(context.Context, time.Time, time.Time) ([]analytics.DailySales, error) {
	return nil, nil
}

type allowAllSessions struct{}

func (allowAllSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "shopstream", ExpirationMinutes: 60},
	}
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	return NewRouter(RouterParams{
		Config:    testConfig(),
		Logger:    logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard}),
		Sessions:  allowAllSessions{},
		Auth:      fakeAuthService{},
		Catalog:   fakeCatalogService{},
		Cart:      fakeCartService{},
		Coupons:   fakeCouponService{},
		Orders:    fakeOrderService{},
		Analytics: fakeAnalyticsService{},
	})
}

func mintToken(t *testing.T, role string) string {
	t.Helper()

	token, err := pkgauth.MintAccessToken(testConfig().JWT, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterPublicRoutes(t *testing.T) {
	router := testRouter(t)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/products/featured", http.StatusOK},
		{http.MethodGet, "/api/v1/products/category/apparel", http.StatusOK},
		{http.MethodGet, "/api/v1/products/recommendations", http.StatusOK},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, nil))
		if resp.Code != tc.status {
			t.Fatalf("%s %s: expected %d got %d", tc.method, tc.path, tc.status, resp.Code)
		}
	}
}

func TestRouterRequiresAuth(t *testing.T) {
	router := testRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodDelete, "/api/v1/cart/clear"},
		{http.MethodGet, "/api/v1/coupons"},
		{http.MethodPost, "/api/v1/checkout/confirm"},
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/auth/profile"},
		{http.MethodGet, "/api/v1/analytics"},
	}
	for _, tc := range paths {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestRouterCustomerToken(t *testing.T) {
	router := testRouter(t)
	token := mintToken(t, models.RoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("cart with customer token: expected 200 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("analytics with customer token: expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("create product with customer token: expected 403 got %d", resp.Code)
	}
}

func TestRouterAdminToken(t *testing.T) {
	router := testRouter(t)
	token := mintToken(t, models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("analytics with admin token: expected 200 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("list products with admin token: expected 200 got %d", resp.Code)
	}
}
