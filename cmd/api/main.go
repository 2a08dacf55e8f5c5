package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/geodata"
	"github.com/precoperto/api/internal/handlers"
	"github.com/precoperto/api/internal/payments"
	"github.com/precoperto/api/internal/platform/auth"
	"github.com/precoperto/api/internal/platform/config"
	pfirestore "github.com/precoperto/api/internal/platform/firestore"
	"github.com/precoperto/api/internal/platform/idempotency"
	"github.com/precoperto/api/internal/platform/observability"
	"github.com/precoperto/api/internal/repositories"
	firestoreRepo "github.com/precoperto/api/internal/repositories/firestore"
	"github.com/precoperto/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	cache, redisClient := newGeodataCache(cfg, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	geocodePool := geodata.NewWorkerPool(cfg.Geo.GeocodeConcurrency)
	defer geocodePool.Close()

	geocodeClient := &http.Client{Timeout: cfg.Geo.GeocodeTimeout}
	geocoder, err := geodata.NewHTTPReverseGeocoder(geodata.HTTPReverseGeocoderDeps{
		ProviderURLs: cfg.Geo.ReverseGeocodeURLs,
		HTTPClient:   geocodeClient,
		Cache:        cache,
		Pool:         geocodePool,
		RetryBase:    cfg.Geo.GeocodeRetryBase,
		MaxAttempts:  cfg.Geo.GeocodeMaxAttempts,
		Logger:       logger.Named("geocoder"),
	})
	if err != nil {
		logger.Fatal("failed to initialise reverse geocoder", zap.Error(err))
	}

	overpass, err := geodata.NewOverpassClient(geodata.OverpassClientDeps{
		MirrorURLs: cfg.Geo.OverpassURLs,
		HTTPClient: &http.Client{Timeout: cfg.Geo.OverpassTimeout},
		Cache:      cache,
		CacheTTL:   cfg.Cache.POITTL,
		Logger:     logger.Named("overpass"),
	})
	if err != nil {
		logger.Fatal("failed to initialise overpass client", zap.Error(err))
	}

	postal, err := geodata.NewViaCEPClient(cfg.Geo.PostalLookupURL, geocodeClient, cache)
	if err != nil {
		logger.Fatal("failed to initialise postal lookup", zap.Error(err))
	}
	osrmRouter, err := geodata.NewOSRMRouter(cfg.Geo.RoutingURL, geocodeClient, logger.Named("osrm"))
	if err != nil {
		logger.Fatal("failed to initialise router", zap.Error(err))
	}
	ipLocator, err := geodata.NewIPAPIClient(cfg.Geo.IPGeolocationURL, geocodeClient)
	if err != nil {
		logger.Fatal("failed to initialise ip locator", zap.Error(err))
	}

	svc := buildServices(logger, cfg, registry, overpass, geocoder, postal, osrmRouter, ipLocator)

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	idempotencyStore, err := idempotency.NewFirestoreStore(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise idempotency store", zap.Error(err))
	}
	idempotencyMiddleware := idempotency.NewMiddleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
	)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(version(), cfg.Environment),
		handlers.WithReadinessCheck("firestore", func(ctx context.Context) error {
			_, err := firestoreProvider.Client(ctx)
			return err
		}),
	)

	router := handlers.NewRouter(
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMiddlewares(
			observability.TraceMiddleware(cfg.Firebase.ProjectID),
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(cfg.Firebase.ProjectID),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithMarketRoutes(handlers.NewMarketsHandler(svc.discovery).Routes),
		handlers.WithGeoRoutes(handlers.NewGeoHandler(svc.geo).Routes),
		handlers.WithFuelPriceRoutes(handlers.NewFuelPricesHandler(svc.fuelPrices).Routes),
		handlers.WithProducerRoutes(handlers.NewListingsHandler(svc.listings, domain.ListingKindProducer).Routes),
		handlers.WithBarterRoutes(handlers.NewListingsHandler(svc.listings, domain.ListingKindBarter).Routes),
		handlers.WithMeMiddlewares(authenticator.RequireFirebaseAuth()),
		handlers.WithMeRoutes(func(r chi.Router) {
			r.Route("/carts", handlers.NewCartsHandler(svc.carts).Routes)
			r.Route("/comparisons", handlers.NewComparisonsHandler(svc.comparisons).Routes)
			r.Route("/orders", func(sub chi.Router) {
				sub.Use(idempotencyMiddleware.Handler)
				handlers.NewOrdersHandler(svc.orders).Routes(sub)
			})
			r.Route("/coupons", handlers.NewCouponsHandler(svc.coupons).Routes)
			r.Route("/favorites", handlers.NewMarkersHandler(svc.markers, repositories.MarkerFavorite).Routes)
			r.Route("/visited", handlers.NewMarkersHandler(svc.markers, repositories.MarkerVisited).Routes)
		}),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("environment", cfg.Environment))
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

type serviceSet struct {
	discovery   services.DiscoveryService
	comparisons services.ComparisonService
	carts       services.CartService
	orders      services.OrderService
	coupons     services.CouponService
	markers     services.MarkerService
	listings    services.ListingService
	fuelPrices  services.FuelPriceService
	geo         services.GeoService
}

func buildServices(
	logger *zap.Logger,
	cfg config.Config,
	registry *repositories.Registry,
	searcher geodata.POISearcher,
	geocoder geodata.ReverseGeocoder,
	postal geodata.PostalLookup,
	router geodata.Router,
	locator geodata.IPLocator,
) serviceSet {
	discovery, err := services.NewDiscoveryService(services.DiscoveryServiceDeps{
		Searcher:   searcher,
		FuelPrices: registry.FuelPrices,
		Geocoder:   geocoder,
		Logger:     observability.ServiceLogger(logger.Named("discovery")),
	})
	if err != nil {
		logger.Fatal("failed to initialise discovery service", zap.Error(err))
	}

	comparisons, err := services.NewComparisonService(services.ComparisonServiceDeps{
		Carts:      registry.Carts,
		SessionTTL: cfg.Cache.ComparisonTTL,
	})
	if err != nil {
		logger.Fatal("failed to initialise comparison service", zap.Error(err))
	}

	carts, err := services.NewCartService(services.CartServiceDeps{Carts: registry.Carts})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Carts:    registry.Carts,
		Orders:   registry.Orders,
		Placer:   registry.Placer,
		Payments: payments.NewSimulatedProvider(cfg.Orders.PaymentCaptureDelay),
		Pricing:  comparisons,
		Logger:   observability.ServiceLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	coupons, err := services.NewCouponService(services.CouponServiceDeps{Coupons: registry.Coupons})
	if err != nil {
		logger.Fatal("failed to initialise coupon service", zap.Error(err))
	}

	markers, err := services.NewMarkerService(services.MarkerServiceDeps{Markers: registry.Markers})
	if err != nil {
		logger.Fatal("failed to initialise marker service", zap.Error(err))
	}

	listings, err := services.NewListingService(services.ListingServiceDeps{Listings: registry.Listings})
	if err != nil {
		logger.Fatal("failed to initialise listing service", zap.Error(err))
	}

	fuelPrices, err := services.NewFuelPriceService(services.FuelPriceServiceDeps{FuelPrices: registry.FuelPrices})
	if err != nil {
		logger.Fatal("failed to initialise fuel price service", zap.Error(err))
	}

	geo, err := services.NewGeoService(services.GeoServiceDeps{
		Geocoder: geocoder,
		Postal:   postal,
		Router:   router,
		Locator:  locator,
	})
	if err != nil {
		logger.Fatal("failed to initialise geo service", zap.Error(err))
	}

	return serviceSet{
		discovery:   discovery,
		comparisons: comparisons,
		carts:       carts,
		orders:      orders,
		coupons:     coupons,
		markers:     markers,
		listings:    listings,
		fuelPrices:  fuelPrices,
		geo:         geo,
	}
}

// newGeodataCache selects Redis when an address is configured and falls back
// to the in-process cache otherwise.
func newGeodataCache(cfg config.Config, logger *zap.Logger) (geodata.Cache, *redis.Client) {
	if cfg.Cache.RedisAddr == "" {
		return geodata.NewMemoryCache(0), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	logger.Info("using redis geodata cache", zap.String("addr", cfg.Cache.RedisAddr))
	return geodata.NewRedisCache(client, "geodata"), client
}

func version() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return "dev"
}
