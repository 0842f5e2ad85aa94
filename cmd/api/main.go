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

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/seatsurge/boxoffice/internal/app"
	"github.com/seatsurge/boxoffice/internal/clock"
	"github.com/seatsurge/boxoffice/internal/config"
	"github.com/seatsurge/boxoffice/internal/domain"
	"github.com/seatsurge/boxoffice/internal/logger"
	"github.com/seatsurge/boxoffice/internal/storage/postgres"
	transporthttp "github.com/seatsurge/boxoffice/internal/transport/http"
	"github.com/seatsurge/boxoffice/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatal("apply migrations", zap.Error(err))
	}

	clk := clock.NewSystem()
	cartRepo := postgres.NewCartRepository(pool)
	cartSvc := app.NewCartService(cartRepo, clk, app.WithReservationTTL(cfg.ReservationTTL))
	orderRepo := postgres.NewOrderRepository(pool)
	coord := postgres.NewLockCoordinator(pool, int(cfg.LockTimeout.Milliseconds()))
	orderOpts := []app.OrderServiceOption{
		app.WithRoundingMode(domain.RoundingMode(cfg.RoundingMode)),
	}
	if cfg.PriceDriftAbort {
		orderOpts = append(orderOpts, app.WithPriceDriftAbort())
	}
	orderSvc := app.NewOrderService(orderRepo, coord, clk, log, orderOpts...)
	adminRepo := postgres.NewAdminRepository(pool)
	adminSvc := app.NewAdminService(adminRepo, clk)
	availSvc := app.NewAvailabilityService(adminRepo, clk, app.WithFewThreshold(cfg.FewThreshold))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/carts", transporthttp.HandleAddToCart(cartSvc))
	mux.Handle("/carts/", transporthttp.HandleCartActions(cartSvc))
	mux.Handle("/orders", transporthttp.HandleCreateOrder(orderSvc))
	mux.Handle("/events/", transporthttp.HandleAvailability(availSvc))
	mux.Handle("/admin/events", transporthttp.HandleAdminEvents(adminSvc))
	mux.Handle("/admin/events/", transporthttp.HandleAdminEventResources(adminSvc))
	mux.Handle("/admin/quotas/", transporthttp.HandleAdminQuotaReopen(adminSvc))
	mux.Handle("/admin/products/", transporthttp.HandleAdminProductVariations(adminSvc))
	mux.Handle("/admin/subevents/", transporthttp.HandleAdminDateOverrides(adminSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := app.NewExpirySweeper(cartSvc, cfg.SweepInterval, log)
	go sweeper.Run(stopCtx)

	log.Info("api listening", zap.Int("port", cfg.Port))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		log.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
}
