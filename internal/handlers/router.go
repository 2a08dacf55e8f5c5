package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/precoperto/api/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	markets    RouteRegistrar
	geo        RouteRegistrar
	fuelPrices RouteRegistrar
	producers  RouteRegistrar
	barters    RouteRegistrar
	me         RouteRegistrar

	meMiddlewares []func(http.Handler) http.Handler
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix  = "/api/v1"
	defaultTimeout    = 60 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and the expected
// route groups.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		mount := func(path string, registrar RouteRegistrar, name string, groupMW []func(http.Handler) http.Handler) {
			api.Route(path, func(group chi.Router) {
				for _, mw := range groupMW {
					if mw != nil {
						group.Use(mw)
					}
				}
				if registrar != nil {
					registrar(group)
					return
				}
				registerNotImplemented(group, name)
			})
		}

		mount("/markets", cfg.markets, "markets", nil)
		mount("/geo", cfg.geo, "geo", nil)
		mount("/fuel-prices", cfg.fuelPrices, "fuelPrices", nil)
		mount("/listings/producers", cfg.producers, "producers", nil)
		mount("/listings/barters", cfg.barters, "barters", nil)
		mount("/me", cfg.me, "me", cfg.meMiddlewares)
	})

	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers for /healthz and /readyz.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithMarketRoutes configures the registrar for nearby market discovery.
func WithMarketRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.markets = reg
	}
}

// WithGeoRoutes configures the registrar for geo utility endpoints.
func WithGeoRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.geo = reg
	}
}

// WithFuelPriceRoutes configures the registrar for fuel price endpoints.
func WithFuelPriceRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.fuelPrices = reg
	}
}

// WithProducerRoutes configures the registrar for the producer marketplace.
func WithProducerRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.producers = reg
	}
}

// WithBarterRoutes configures the registrar for the barter board.
func WithBarterRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.barters = reg
	}
}

// WithMeRoutes configures the registrar for user scoped endpoints.
func WithMeRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.me = reg
	}
}

// WithMeMiddlewares sets the middleware applied to the /me group, usually the
// Firebase auth requirement.
func WithMeMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.meMiddlewares = append(cfg.meMiddlewares, mw...)
	}
}

func registerNotImplemented(r chi.Router, group string) {
	r.HandleFunc("/*", func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s endpoints are not wired", group), http.StatusNotImplemented))
	})
}
