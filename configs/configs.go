// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// DBDSN is the ClickHouse connection string.
	DBDSN string

	// ServerPort is the HTTP API listen port.
	ServerPort string

	// KafkaNotify contains Kafka connection settings for notification dispatch.
	KafkaNotify KafkaConfig

	// KafkaAudit contains Kafka connection settings for the audit event stream.
	KafkaAudit KafkaConfig

	// Inference contains settings for the external NLP inference service.
	Inference InferenceConfig

	// Worker contains settings for the workflow worker.
	Worker WorkerConfig
}

// KafkaConfig holds Kafka connection settings for one topic.
type KafkaConfig struct {
	// Broker is the Kafka broker address (e.g., "localhost:9092").
	Broker string

	// Topic is the Kafka topic name.
	Topic string
}

// InferenceConfig holds settings for the external inference service client.
type InferenceConfig struct {
	// BaseURL is the inference service endpoint (e.g., "http://localhost:9200").
	BaseURL string

	// RequestTimeoutSeconds bounds a single inference call.
	RequestTimeoutSeconds int

	// RequestsPerSecond caps the outbound call rate.
	RequestsPerSecond float64
}

// WorkerConfig holds settings for the workflow worker binary.
type WorkerConfig struct {
	// MaxConcurrentInstances caps the number of workflow instances running in parallel.
	MaxConcurrentInstances int

	// MonitorIntervalSeconds is the sleep between market monitoring cycles.
	MonitorIntervalSeconds int

	// InsightHour is the hour of day (0-23) to run the daily insight workflow.
	InsightHour int

	// SignalTTL is how long a signal stays active before expiry.
	SignalTTL time.Duration

	// InsightPairs are the market pairs the daily insight run correlates,
	// parsed from a comma-separated list of "A:B" entries.
	InsightPairs [][2]string
}

// parseInsightPairs parses "BTCUSDT:ETHUSDT,BTCUSDT:ADAUSDT" into pairs,
// dropping malformed entries.
func parseInsightPairs(raw string) [][2]string {
	var pairs [][2]string
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		pairs = append(pairs, [2]string{parts[0], parts[1]})
	}
	return pairs
}

// getDatabaseDSN constructs the ClickHouse DSN from environment variables.
func getDatabaseDSN() string {
	dbUser := getEnv("CLICKHOUSE_USER", "default")
	dbPassword := getEnv("CLICKHOUSE_PASSWORD", "")
	dbHost := getEnv("CLICKHOUSE_HOST", "localhost")
	dbPort := getEnv("CLICKHOUSE_TCP_PORT", "9000")
	dbName := getEnv("CLICKHOUSE_DB", "pulse")

	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&read_timeout=20s",
		dbUser, dbPassword, dbHost, dbPort, dbName,
	)
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	insightHour := getEnvInt("INSIGHT_SCHEDULE_HOUR", 6)
	if insightHour < 0 || insightHour > 23 {
		insightHour = 6
	}

	return &AppConfig{
		DBDSN:      getDatabaseDSN(),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		KafkaNotify: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", "localhost:9092"),
			Topic:  getEnv("KAFKA_NOTIFY_TOPIC", "pulse_notifications"),
		},
		KafkaAudit: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", "localhost:9092"),
			Topic:  getEnv("KAFKA_AUDIT_TOPIC", "pulse_workflow_audit"),
		},
		Inference: InferenceConfig{
			BaseURL:               getEnv("INFERENCE_URL", "http://localhost:9200"),
			RequestTimeoutSeconds: getEnvInt("INFERENCE_TIMEOUT_SECONDS", 30),
			RequestsPerSecond:     getEnvFloat("INFERENCE_RPS", 4),
		},
		Worker: WorkerConfig{
			MaxConcurrentInstances: getEnvInt("WORKER_MAX_INSTANCES", 64),
			MonitorIntervalSeconds: getEnvInt("MONITOR_INTERVAL_SECONDS", 300),
			InsightHour:            insightHour,
			SignalTTL:              time.Duration(getEnvInt("SIGNAL_TTL_HOURS", 24)) * time.Hour,
			InsightPairs:           parseInsightPairs(getEnv("INSIGHT_PAIRS", "")),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
