package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkout-backend/services/cart-service/config"
	"checkout-backend/services/cart-service/controllers"
	"checkout-backend/services/cart-service/database"
	"checkout-backend/services/cart-service/routes"
	"checkout-backend/services/cart-service/services"
	"checkout-backend/services/common/bus"
	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/common/logger"
	"checkout-backend/services/contracts"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Environment)
	defer logger.Log.Sync()
	log := logger.Named("cart-service")

	redisClient := database.NewRedisClient(cfg.RedisURL)
	repo := database.NewCartRepository(redisClient, cfg.CartTTL, cfg.PendingTTL)

	publisher := bus.NewPublisher(cfg.KafkaBrokers, log)
	defer publisher.Close()

	initiator := services.NewCheckoutInitiator(repo, publisher, log)
	sagaConsumer := services.NewSagaConsumer(repo, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Terminal events drive cart cleanup and marker release.
	completedConsumer := bus.NewConsumer(cfg.KafkaBrokers, contracts.TopicOrderCompleted, cfg.GroupID, log)
	failedConsumer := bus.NewConsumer(cfg.KafkaBrokers, contracts.TopicCheckoutFailed, cfg.GroupID, log)
	go func() {
		if err := completedConsumer.Run(ctx, sagaConsumer.Handle); err != nil {
			log.Fatal("order.completed consumer stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := failedConsumer.Run(ctx, sagaConsumer.Handle); err != nil {
			log.Fatal("checkout.failed consumer stopped", zap.Error(err))
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger(), apperrors.ErrorMiddleware())
	routes.RegisterCartRoutes(router, controllers.NewCartController(repo, initiator, log))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("cart service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down gracefully")
	cancel()
	completedConsumer.Close()
	failedConsumer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("shutdown error", zap.Error(err))
	}
	log.Info("server shutdown complete")
}
