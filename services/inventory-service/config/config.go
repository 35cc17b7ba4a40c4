package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the inventory-service.
type Config struct {
	Port              string
	Environment       string
	KafkaBrokers      []string
	GroupID           string
	InventoryTable    string
	ReservationsTable string
}

// Load reads environment variables into a Config struct.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:              getEnv("PORT", "8084"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		KafkaBrokers:      splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		GroupID:           getEnv("KAFKA_GROUP_ID", "inventory-service"),
		InventoryTable:    getEnv("DDB_TABLE_INVENTORY", "Inventory"),
		ReservationsTable: getEnv("DDB_TABLE_RESERVATIONS", "InventoryReservations"),
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
