package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/totallytravels/backend/internal/cache"
	"github.com/totallytravels/backend/internal/config"
	"github.com/totallytravels/backend/internal/geocode"
	httphandler "github.com/totallytravels/backend/internal/http"
	"github.com/totallytravels/backend/internal/lifecycle"
	"github.com/totallytravels/backend/internal/location"
	"github.com/totallytravels/backend/internal/mail"
	"github.com/totallytravels/backend/internal/models"
	"github.com/totallytravels/backend/internal/observability"
	"github.com/totallytravels/backend/internal/weather"
)

func main() {
	_ = godotenv.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	// One shared outbound client for both upstreams. No timeout by default;
	// calls are bounded only by the inbound request context.
	upstreamClient := &http.Client{Timeout: cfg.UpstreamTimeout}

	var geocodeCache cache.Cache[geocode.Result]
	var weatherCache cache.Cache[models.CurrentConditions]
	var cachePing func() error
	var closeCache func()
	switch cfg.CacheBackend {
	case "memcached":
		mc := cache.NewMemcachedClient(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		geocodeCache = cache.NewMemcached[geocode.Result](mc, "geocode")
		weatherCache = cache.NewMemcached[models.CurrentConditions](mc, "weather")
		cachePing = mc.Ping
		closeCache = func() {
			if err := mc.Close(); err != nil {
				logger.Error("memcached close", zap.Error(err))
			}
		}
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		geocodeCache = cache.NewMemory[geocode.Result]()
		weatherCache = cache.NewMemory[models.CurrentConditions]()
		logger.Info("cache backend: in_memory")
	}

	geocoder := geocode.NewClient(cfg.GeocodeAPIURL, upstreamClient, geocodeCache, cfg.GeocodeCacheTTL)
	forecaster := weather.NewClient(cfg.WeatherAPIURL, upstreamClient, weatherCache, cfg.WeatherCacheTTL)
	resolver := location.NewResolver(geocoder)

	mailer := mail.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromName, cfg.ContactTo)
	if !mailer.Configured() {
		logger.Warn("email relay not configured; contact and booking forms will fail",
			zap.String("hint", "set SMTP_USERNAME, SMTP_PASSWORD (and optionally CONTACT_TO)"))
	}

	observability.SetTrackedCities(location.CityKeys())

	handler := httphandler.NewHandler(resolver, forecaster, mailer, logger, cfg.QueryMaxLength, cachePing)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.Use(cors.Handler(httphandler.CORSOptions(cfg.AllowedOrigins)))
	router.HandleFunc("/", handler.GetRoot).Methods("GET")
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(httphandler.RateLimitMiddleware(limiter))
	apiRouter.HandleFunc("/weather", handler.GetWeather).Methods("GET")
	apiRouter.HandleFunc("/contact", handler.PostContact).Methods("POST")
	apiRouter.HandleFunc("/book", handler.PostBook).Methods("POST")

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
		// No write timeout: weather requests may legitimately wait on a slow
		// upstream for longer than any fixed bound.
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if closeCache != nil {
		closeCache()
	}
	logger.Info("shutdown complete")
}
