// README: Entry point; loads config, wires stores and services, starts the
// HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hubpool/internal/config"
	"hubpool/internal/events"
	httptransport "hubpool/internal/http"
	"hubpool/internal/http/handlers"
	"hubpool/internal/infra"
	"hubpool/internal/logging"
	"hubpool/internal/maps"
	"hubpool/internal/modules/fleet"
	"hubpool/internal/modules/pricing"
	"hubpool/internal/modules/ride"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(cfg.Log.Level)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("db init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	publisher := events.NewPublisher(redisClient, cfg.Redis.Stream)

	var travel handlers.TravelEstimator
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			logger.Fatal("maps init", zap.Error(err))
		}
		travel = routeSvc
	}

	fleetStore := fleet.NewStore(dbPool)
	pricingSvc := pricing.NewService(pricing.Rates{
		RatePerKm:  cfg.Pooling.RatePerKm,
		DetourRate: cfg.Pooling.DetourRateKm,
	})
	rideStore := ride.NewStore(dbPool)
	rideSvc := ride.NewService(rideStore, fleetStore, pricingSvc, publisher, logger, ride.PoolingConfig{
		Hub:             cfg.Pooling.Hub(),
		PickupRadiusKm:  cfg.Pooling.PickupRadiusKm,
		SeatCapacity:    cfg.Pooling.SeatCapacity,
		LuggageCapacity: cfg.Pooling.LuggageCapacity,
	})

	handler := httptransport.NewRouter(rideSvc, travel, cfg.Pooling.Hub(), handlers.BookingLimits{
		SeatCapacity:    cfg.Pooling.SeatCapacity,
		LuggageCapacity: cfg.Pooling.LuggageCapacity,
	}, logger)

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("serve", zap.Error(err))
	}
}
