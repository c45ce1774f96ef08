package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmarceau/shopstream-backend/api/controllers"
	"github.com/dmarceau/shopstream-backend/api/middleware"
	"github.com/dmarceau/shopstream-backend/internal/analytics"
	authsvc "github.com/dmarceau/shopstream-backend/internal/auth"
	"github.com/dmarceau/shopstream-backend/internal/cart"
	"github.com/dmarceau/shopstream-backend/internal/catalog"
	"github.com/dmarceau/shopstream-backend/internal/coupons"
	"github.com/dmarceau/shopstream-backend/internal/orders"
	"github.com/dmarceau/shopstream-backend/pkg/auth/session"
	"github.com/dmarceau/shopstream-backend/pkg/config"
	"github.com/dmarceau/shopstream-backend/pkg/db"
	"github.com/dmarceau/shopstream-backend/pkg/db/models"
	"github.com/dmarceau/shopstream-backend/pkg/logger"
	"github.com/dmarceau/shopstream-backend/pkg/metrics"
	"github.com/dmarceau/shopstream-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on. Metrics may be
// nil in tests; every service is required.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Sessions    session.AccessSessionChecker
	HTTPMetrics *metrics.HTTPMetrics

	Auth      authsvc.Service
	Catalog   catalog.Service
	Cart      cart.Service
	Coupons   coupons.Service
	Orders    orders.Service
	Analytics analytics.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var readyChecks []func() error
	if p.DB != nil {
		readyChecks = append(readyChecks, func() error { return p.DB.Ping(context.Background()) })
	}
	if p.Redis != nil {
		readyChecks = append(readyChecks, func() error { return p.Redis.Ping(context.Background()) })
	}

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readyChecks...))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.Signup(p.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.Login(p.Auth, logg))
		r.Post("/refresh", controllers.Refresh(p.Auth, logg))
		r.Post("/logout", controllers.Logout(p.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Get("/profile", controllers.Profile(p.Auth, logg))
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/featured", controllers.FeaturedProducts(p.Catalog, logg))
		r.Get("/category/{category}", controllers.ProductsByCategory(p.Catalog, logg))
		r.Get("/recommendations", controllers.RecommendedProducts(p.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Use(middleware.RequireRole(models.RoleAdmin, logg))
			r.Get("/", controllers.ListProducts(p.Catalog, logg))
			r.Post("/", controllers.CreateProduct(p.Catalog, logg))
			r.Patch("/{id}", controllers.UpdateProduct(p.Catalog, logg))
			r.Delete("/{id}", controllers.DeleteProduct(p.Catalog, logg))
			r.Patch("/{id}/feature", controllers.ToggleFeatured(p.Catalog, logg))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(p.Cart, logg))
			r.Post("/", controllers.AddCartItem(p.Cart, logg))
			r.Put("/{productId}", controllers.SetCartQuantity(p.Cart, logg))
			r.Delete("/", controllers.RemoveCartItem(p.Cart, logg))
			r.Delete("/clear", controllers.ClearCart(p.Cart, logg))
		})

		r.Route("/api/v1/coupons", func(r chi.Router) {
			r.Get("/", controllers.ListCoupons(p.Coupons, logg))
			r.Post("/validate", controllers.ValidateCoupon(p.Coupons, logg))
			r.Post("/apply", controllers.ApplyCoupon(p.Coupons, logg))
			r.Delete("/apply", controllers.RemoveCoupon(p.Coupons, logg))
		})

		r.Post("/api/v1/checkout/confirm", controllers.ConfirmCheckout(p.Orders, logg))
		r.Get("/api/v1/orders", controllers.OrderHistory(p.Orders, logg))

		r.Route("/api/v1/analytics", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin, logg))
			r.Get("/", controllers.AnalyticsSummary(p.Analytics, logg))
			r.Get("/daily", controllers.DailySales(p.Analytics, logg))
		})
	})

	return r
}
