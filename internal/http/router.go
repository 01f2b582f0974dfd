package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_shop/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
}

type RouterConfig struct {
	RequestTimeout time.Duration
	Metrics        *metrics.ServerMetrics
	Gatherer       prometheus.Gatherer
	Log            *slog.Logger
}

// NewRouter mounts the storefront API. Identity headers are only required
// below /api/v1 and never for the public catalog.
func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(MetricsMiddleware(cfg.Metrics))
	}
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.Products.List)
		r.Get("/products/{id}", h.Products.Get)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware)

			r.Route("/admin/products", func(r chi.Router) {
				r.Get("/", h.Products.ListOwn)
				r.Post("/", h.Products.Create)
				r.Put("/{id}", h.Products.Update)
				r.Delete("/{id}", h.Products.Delete)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Post("/items", h.Cart.AddItem)
				r.Delete("/items/{entry_id}", h.Cart.RemoveItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", h.Checkout.Preview)
				r.Post("/", h.Checkout.Start)
				r.Get("/success", h.Checkout.Success)
				r.Get("/cancel", h.Checkout.Cancel)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.Orders.List)
				r.Get("/{order_id}", h.Orders.Get)
				r.Get("/{order_id}/invoice", h.Orders.Invoice)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
