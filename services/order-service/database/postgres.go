package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/order-service/config"
)

// Connect opens the orders database, retrying while the container comes up,
// and runs migrations for the given models.
func Connect(cfg *config.Config, logger *zap.Logger, migrate ...interface{}) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		cfg.PostgresHost, cfg.PostgresUser, cfg.PostgresPassword,
		cfg.PostgresDB, cfg.PostgresPort, cfg.PostgresSSLMode, cfg.PostgresTimeZone,
	)

	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			if sqlDB, poolErr := db.DB(); poolErr == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
			}

			if len(migrate) > 0 {
				if err := db.AutoMigrate(migrate...); err != nil {
					return nil, fmt.Errorf("auto-migrate: %w", err)
				}
			}
			logger.Info("connected to postgres", zap.String("db", cfg.PostgresDB))
			return db, nil
		}

		logger.Warn("db connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Duration(i+1) * 2 * time.Second)
	}

	return nil, apperrors.ErrDatabaseConnection.WithCause(fmt.Errorf("connect to postgres after retries: %w", err))
}
