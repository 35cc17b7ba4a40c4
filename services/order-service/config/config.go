package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	KafkaBrokers []string
	GroupID      string

	// Currency attached to every payment request.
	Currency string

	// CheckoutTimeout is how long a saga may stay non-terminal before the
	// deadline sweeper compensates it. SweepInterval is how often the
	// sweeper looks.
	CheckoutTimeout time.Duration
	SweepInterval   time.Duration

	// Optional SNS fan-out for terminal order events.
	SNSTopicARN string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8083"),
		Environment:      getEnv("ENV", "development"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getEnv("POSTGRES_DB", "orders"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		KafkaBrokers:     strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		GroupID:          getEnv("KAFKA_GROUP_ID", "order-service"),
		Currency:         getEnv("PAYMENT_CURRENCY", "usd"),
		CheckoutTimeout:  getDuration("CHECKOUT_TIMEOUT", 10*time.Minute),
		SweepInterval:    getDuration("SWEEP_INTERVAL", time.Minute),
		SNSTopicARN:      os.Getenv("ORDER_EVENTS_SNS_TOPIC_ARN"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
