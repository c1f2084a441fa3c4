// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"driverpay/pkg/db" // Import db package for its Config struct
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string
	DB         db.Config

	// IdempotencyLease bounds how long a crashed request holder can block
	// retries of the same idempotency key.
	IdempotencyLease time.Duration
	// IdempotencyWindow is how long stored responses stay replayable.
	IdempotencyWindow time.Duration
	// IdempotencyCleanupEvery is the janitor interval for purging expired
	// claims.
	IdempotencyCleanupEvery time.Duration

	// RefundPolicyWindow bounds the immediate ("undo") refund path.
	RefundPolicyWindow time.Duration

	// EventBufferSize is the capacity of the in-process event channel.
	EventBufferSize int
}

// LoadConfig loads configuration from environment variables, optionally
// seeded from a .env file when one is present.
// It returns an AppConfig instance or an error if any variable is invalid.
func LoadConfig() (*AppConfig, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080" // Default port
	}

	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost" // Default to localhost for local development
	}
	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		dbPortStr = "5432" // Default PostgreSQL port
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		dbUser = "user" // Default user for local development
	}
	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		dbPassword = "password" // Default password for local development
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "driverpaydb" // Default database name for local development
	}
	dbSSLMode := os.Getenv("DB_SSLMODE")
	if dbSSLMode == "" {
		dbSSLMode = "disable" // Default to disable for local development
	}

	lease, err := durationEnv("IDEMPOTENCY_LEASE_SEC", 30*time.Second)
	if err != nil {
		return nil, err
	}
	window, err := durationEnv("IDEMPOTENCY_WINDOW_SEC", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cleanupEvery, err := durationEnv("IDEMPOTENCY_CLEANUP_SEC", time.Hour)
	if err != nil {
		return nil, err
	}
	refundWindow, err := durationEnv("REFUND_POLICY_WINDOW_SEC", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	eventBuffer := 256
	if v := os.Getenv("EVENT_BUFFER_SIZE"); v != "" {
		eventBuffer, err = strconv.Atoi(v)
		if err != nil || eventBuffer <= 0 {
			return nil, fmt.Errorf("invalid EVENT_BUFFER_SIZE: %q", v)
		}
	}

	return &AppConfig{
		ServerPort: serverPort,
		DB: db.Config{
			Host:     dbHost,
			Port:     dbPort,
			User:     dbUser,
			Password: dbPassword,
			DBName:   dbName,
			SSLMode:  dbSSLMode,
		},
		IdempotencyLease:        lease,
		IdempotencyWindow:       window,
		IdempotencyCleanupEvery: cleanupEvery,
		RefundPolicyWindow:      refundWindow,
		EventBufferSize:         eventBuffer,
	}, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}
	return time.Duration(sec) * time.Second, nil
}
