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

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
	"github.com/fakhrymubarak/skyglow-weather/internal/geolocation"
	"github.com/fakhrymubarak/skyglow-weather/internal/handler"
	"github.com/fakhrymubarak/skyglow-weather/internal/middleware"
	"github.com/fakhrymubarak/skyglow-weather/internal/notify"
	"github.com/fakhrymubarak/skyglow-weather/internal/recent"
	"github.com/fakhrymubarak/skyglow-weather/internal/redis"
	"github.com/fakhrymubarak/skyglow-weather/internal/repository"
	"github.com/fakhrymubarak/skyglow-weather/internal/service"
	"github.com/fakhrymubarak/skyglow-weather/internal/storage"
	"github.com/fakhrymubarak/skyglow-weather/internal/suggestion"
)

// app is one dashboard session with everything it owns.
type app struct {
	handler     *handler.DashboardHandler
	dashboard   *service.DashboardService
	suggestions *suggestion.Controller
	closers     []func() error
}

func (a *app) Close() error {
	a.suggestions.Close()
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// newRecentKV opens the recent-searches backend named by recent.backend.
func newRecentKV(backend string) (recent.KV, func() error, error) {
	switch backend {
	case "redis":
		client := redis.GetClient()
		return redis.NewKV(client), client.Close, nil
	case "sqlite":
		db, err := storage.NewSQLite(config.GetRecentSQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case "memory", "":
		return recent.NewMemoryKV(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown recent.backend %q", backend)
	}
}

// newApp wires a session. httpClient is optional and replaces the provider transport.
func newApp(httpClient ...*http.Client) (*app, error) {
	kv, closeKV, err := newRecentKV(config.GetRecentBackend())
	if err != nil {
		return nil, err
	}

	repoCfg := repository.ConfigFromEnv()
	weatherRepo := repository.NewWeatherRepository(repoCfg, httpClient...)
	rps, burst := config.GetSuggestionRateConfig()
	geocoder := repository.NewRateLimitedGeocoder(repository.NewGeocodingRepository(repoCfg, httpClient...), rps, burst)

	queue := notify.NewQueue(0)
	store := recent.NewStore(kv, config.GetRecentKey(), config.GetRecentCapacity())
	dashboard := service.NewDashboardService(weatherRepo, store, geolocation.FromConfig(), notify.Log{Next: queue})
	suggestions := suggestion.NewController(geocoder,
		suggestion.WithDelay(config.GetSuggestionDebounce()),
		suggestion.WithLimit(config.GetSuggestionLimit()),
	)

	return &app{
		handler:     handler.NewDashboardHandler(dashboard, suggestions, queue),
		dashboard:   dashboard,
		suggestions: suggestions,
		closers:     []func() error{closeKV},
	}, nil
}

func newServer(h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + config.GetServerPort(),
		Handler:           h,
		ReadHeaderTimeout: config.GetServerTimeoutDuration("read_header_timeout", 15*time.Second),
		ReadTimeout:       config.GetServerTimeoutDuration("read_timeout", 15*time.Second),
		WriteTimeout:      config.GetServerTimeoutDuration("write_timeout", 30*time.Second),
		IdleTimeout:       config.GetServerTimeoutDuration("idle_timeout", 60*time.Second),
	}
}

func main() {
	logger := config.GetLogger()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		logger.Fatalw("Could not start dashboard", "error", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warnw("Error releasing resources", "error", err)
		}
	}()

	middleware.StartRateLimiterCleanup(ctx)

	go func() {
		if err := a.dashboard.Init(ctx); err != nil {
			logger.Warnw("Initial weather load failed", "error", err)
		}
	}()

	srv := newServer(a.handler.Routes())
	serverErr := make(chan error, 1)
	go func() {
		logger.Infow("Weather dashboard running", "port", config.GetServerPort())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Errorw("Server stopped", "error", err)
	case <-ctx.Done():
		logger.Infow("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Graceful shutdown failed", "error", err)
	}
}
