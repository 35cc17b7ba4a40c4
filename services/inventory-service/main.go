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
	ddb "checkout-backend/pkg/dynamodb"
	"checkout-backend/services/common/bus"
	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/common/logger"
	"checkout-backend/services/contracts"
	"checkout-backend/services/inventory-service/config"
	"checkout-backend/services/inventory-service/controllers"
	"checkout-backend/services/inventory-service/repository"
	"checkout-backend/services/inventory-service/routes"
	"checkout-backend/services/inventory-service/services"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Environment)
	defer logger.Log.Sync()
	log := logger.Named("inventory-service")

	awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
	if err != nil {
		log.Fatal("failed to load AWS config", zap.Error(err))
	}
	ddbClient := ddb.NewClientFromConfig(awsCfg)

	invRepo := repository.NewDynamoInventoryRepository(ddbClient, cfg.InventoryTable)
	resRepo := repository.NewDynamoReservationRepository(ddbClient, cfg.ReservationsTable)

	publisher := bus.NewPublisher(cfg.KafkaBrokers, log)
	defer publisher.Close()

	reservationSvc := services.NewReservationService(invRepo, resRepo, log)
	inventorySvc := services.NewInventoryService(invRepo, log)
	sagaConsumer := services.NewSagaConsumer(reservationSvc, publisher, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checkoutConsumer := bus.NewConsumer(cfg.KafkaBrokers, contracts.TopicCheckoutInitiated, cfg.GroupID, log)
	releaseConsumer := bus.NewConsumer(cfg.KafkaBrokers, contracts.TopicInventoryRelease, cfg.GroupID, log)
	completedConsumer := bus.NewConsumer(cfg.KafkaBrokers, contracts.TopicOrderCompleted, cfg.GroupID, log)
	for _, consumer := range []*bus.Consumer{checkoutConsumer, releaseConsumer, completedConsumer} {
		consumer := consumer
		go func() {
			if err := consumer.Run(ctx, sagaConsumer.Handle); err != nil {
				log.Fatal("consumer stopped", zap.Error(err))
			}
		}()
	}

	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger(), apperrors.ErrorMiddleware())
	routes.RegisterInventoryRoutes(router, controllers.NewInventoryController(inventorySvc, log))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("inventory service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down gracefully")
	cancel()
	checkoutConsumer.Close()
	releaseConsumer.Close()
	completedConsumer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("shutdown error", zap.Error(err))
	}
	log.Info("server shutdown complete")
}
