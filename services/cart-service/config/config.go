package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	Environment  string
	RedisURL     string
	KafkaBrokers []string
	GroupID      string
	CartTTL      time.Duration
	PendingTTL   time.Duration
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:         getEnv("PORT", "8086"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		RedisURL:     getEnv("REDIS_URL", "redis://redis:6379"),
		KafkaBrokers: splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		GroupID:      getEnv("KAFKA_GROUP_ID", "cart-service"),
		CartTTL:      time.Hour * 24 * 7,
		// Pending markers outlive any reasonable saga run; the terminal
		// event clears them long before this expires.
		PendingTTL: time.Hour * 24,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
