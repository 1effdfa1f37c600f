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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/pflag"

	"github.com/mateusmacedo/bus-storefront/internal/booking"
	bookingInfra "github.com/mateusmacedo/bus-storefront/internal/booking/infrastructure"
	"github.com/mateusmacedo/bus-storefront/internal/booking/session"
	"github.com/mateusmacedo/bus-storefront/internal/clock"
	"github.com/mateusmacedo/bus-storefront/internal/config"
	"github.com/mateusmacedo/bus-storefront/internal/random"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
	pkgInfra "github.com/mateusmacedo/bus-storefront/pkg/infrastructure"
	zapAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/zaplogger/adapter"
)

func main() {
	cfg, err := config.Load("bus-storefront", os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	appLogger, err := zapAdapter.NewZapAppLogger(zapAdapter.Options{App: cfg.Log.App, Level: cfg.Log.Level})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg, appLogger); err != nil {
		pkgApp.LogError(context.Background(), appLogger, "server stopped with error", err, nil)
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger pkgApp.AppLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repository, err := newRepository(cfg.Repository, appLogger)
	if err != nil {
		return err
	}

	b, err := newBuses(cfg.Events, appLogger)
	if err != nil {
		return err
	}
	defer b.Close()

	slice := booking.NewBookingSlice(
		booking.Options{
			Session: session.Config{
				SearchLatency:     cfg.Booking.SearchLatency,
				CreateLatency:     cfg.Booking.CreateLatency,
				ConfirmLatency:    cfg.Booking.ConfirmLatency,
				Hold:              cfg.Booking.Hold,
				BookedProbability: cfg.Booking.BookedProbability,
				CodeAttempts:      cfg.Booking.CodeAttempts,
			},
			RequestTimeout: cfg.HTTP.RequestTimeout,
			Clock:          clock.Real(),
			Random:         random.New(cfg.Booking.RandomSeed),
		},
		b.commandBus,
		b.queryBus,
		b.eventBus,
		repository,
		pkgInfra.GenerateUUID,
		appLogger,
	)

	if cfg.Booking.SweepInterval > 0 && cfg.Booking.SessionIdle > 0 {
		go slice.Sessions().RunSweeper(ctx, cfg.Booking.SweepInterval, cfg.Booking.SessionIdle)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(bookingInfra.RequestContext)
	router.Use(bookingInfra.RequestLogger(appLogger))
	router.Use(middleware.Recoverer)
	slice.RegisterRoutes(router)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		pkgApp.LogInfo(ctx, appLogger, "server starting", map[string]interface{}{
			"addr":       cfg.HTTP.Addr,
			"transport":  cfg.Events.Transport,
			"repository": cfg.Repository.Driver,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	pkgApp.LogInfo(context.Background(), appLogger, "shutting down server", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	pkgApp.LogInfo(context.Background(), appLogger, "server stopped", nil)
	return nil
}
