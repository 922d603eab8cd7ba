package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	carthandler "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/cart/handler/http"
	cataloghandler "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/handler/http"
	checkouthandler "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/checkout/handler/http"
	orderhandler "github.com/ingenieria-del-software-2/kiosko-fiuba/internal/order/handler/http"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/health"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/middleware"
)

// routerDeps carries everything newRouter needs to mount the storefront.
type routerDeps struct {
	catalog  *cataloghandler.ProductHandler
	cart     *carthandler.CartHandler
	checkout *checkouthandler.CheckoutHandler
	order    *orderhandler.OrderHandler
	health   *health.Handler

	corsOrigins    []string
	pprofCIDRs     []string
	rateLimitRPS   int
	rateLimitBurst int
}

// newRouter creates the chi router with the storefront routes and the
// shared middleware chain.
func newRouter(deps routerDeps, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	if len(deps.corsOrigins) > 0 {
		corsCfg.AllowedOrigins = deps.corsOrigins
	}

	// Global middleware. Recovery runs outermost so a panic anywhere in
	// the chain still produces a 500 instead of tearing down the server.
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(corsCfg))
	if deps.rateLimitRPS > 0 {
		r.Use(middleware.RateLimit(deps.rateLimitRPS, deps.rateLimitBurst, logger))
	}
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(logger))

	// Operational endpoints.
	r.Get("/health/live", deps.health.LivenessHandler())
	r.Get("/health/ready", deps.health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, deps.pprofCIDRs, logger)

	// Storefront API.
	deps.catalog.RegisterRoutes(r)
	deps.cart.RegisterRoutes(r)
	deps.checkout.RegisterRoutes(r)
	deps.order.RegisterRoutes(r)

	return r
}
