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

	"checkout-backend/services/common/bus"
	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/common/logger"
	"checkout-backend/services/contracts"
	"checkout-backend/services/payment-service/config"
	"checkout-backend/services/payment-service/controllers"
	"checkout-backend/services/payment-service/database"
	"checkout-backend/services/payment-service/models"
	"checkout-backend/services/payment-service/repository"
	"checkout-backend/services/payment-service/routes"
	"checkout-backend/services/payment-service/services"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Environment)
	defer logger.Log.Sync()
	log := logger.Named("payment-service")

	db, err := database.Connect(cfg, log, &models.Payment{})
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	repo := repository.NewGormPaymentRepository(db)

	publisher := bus.NewPublisher(cfg.KafkaBrokers, log)
	defer publisher.Close()

	gateway := services.NewStripeGateway(cfg.StripeSecretKey)
	paymentService := services.NewPaymentService(repo, gateway, log)
	sagaConsumer := services.NewSagaConsumer(paymentService, publisher, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requestConsumer := bus.NewConsumer(cfg.KafkaBrokers, contracts.TopicPaymentRequests, cfg.GroupID, log)
	go func() {
		if err := requestConsumer.Run(ctx, sagaConsumer.Handle); err != nil {
			log.Fatal("payment.requests consumer stopped", zap.Error(err))
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger(), apperrors.ErrorMiddleware())
	routes.RegisterPaymentRoutes(router, controllers.NewPaymentController(paymentService, log))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("payment service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down gracefully")
	cancel()
	requestConsumer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("shutdown error", zap.Error(err))
	}
	log.Info("server shutdown complete")
}
