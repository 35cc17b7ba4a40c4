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

	aws_pkg "checkout-backend/pkg/aws"
	"checkout-backend/services/common/bus"
	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/common/logger"
	"checkout-backend/services/contracts"
	"checkout-backend/services/order-service/config"
	"checkout-backend/services/order-service/controllers"
	"checkout-backend/services/order-service/database"
	"checkout-backend/services/order-service/models"
	"checkout-backend/services/order-service/repository"
	"checkout-backend/services/order-service/routes"
	"checkout-backend/services/order-service/services"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Environment)
	defer logger.Log.Sync()
	log := logger.Named("order-service")

	db, err := database.Connect(cfg, log, &models.Order{}, &models.OrderItem{})
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	repo := repository.NewGormOrderRepository(db)

	publisher := bus.NewPublisher(cfg.KafkaBrokers, log)
	defer publisher.Close()

	var sns aws_pkg.SNSPublisher
	if cfg.SNSTopicARN != "" {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			log.Warn("aws config load failed, sns fan-out disabled", zap.Error(err))
		} else {
			sns = aws_pkg.NewSNSClient(awsCfg)
		}
	}

	orchestrator := services.NewOrchestrator(
		repo, publisher, cfg.Currency, cfg.CheckoutTimeout, sns, cfg.SNSTopicARN, log)
	orderService := services.NewOrderService(repo, orchestrator, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Inventory outcomes and payment outcomes both land on the
	// orchestrator; partitioning by transaction id keeps each saga ordered.
	inventoryConsumer := bus.NewConsumer(cfg.KafkaBrokers, contracts.TopicInventoryEvents, cfg.GroupID, log)
	paymentConsumer := bus.NewConsumer(cfg.KafkaBrokers, contracts.TopicPaymentEvents, cfg.GroupID, log)
	go func() {
		if err := inventoryConsumer.Run(ctx, orchestrator.Handle); err != nil {
			log.Fatal("inventory.events consumer stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := paymentConsumer.Run(ctx, orchestrator.Handle); err != nil {
			log.Fatal("payment.events consumer stopped", zap.Error(err))
		}
	}()

	sweeper := services.NewDeadlineSweeper(repo, orchestrator, cfg.SweepInterval, log)
	go sweeper.Run(ctx)

	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger(), apperrors.ErrorMiddleware())
	routes.RegisterOrderRoutes(router, controllers.NewOrderController(orderService, log))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("order service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down gracefully")
	cancel()
	inventoryConsumer.Close()
	paymentConsumer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("shutdown error", zap.Error(err))
	}
	log.Info("server shutdown complete")
}
