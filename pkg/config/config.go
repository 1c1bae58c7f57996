package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type DBConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	MaxOpenConns int
	MaxIdleConns int
}

type AppConfig struct {
	HTTPPort string
	// EncryptionKey is the hex-encoded 32-byte key for the wallet balance
	// codec. Balances are never persisted or logged in plaintext.
	EncryptionKey string
	// TxTimeout bounds every unit of work; exceeding it rolls the whole
	// operation back with no partial effect.
	TxTimeout          time.Duration
	ProviderBaseURL    string
	ProviderAPIKey     string
	ProviderContract   string
	ActivityBufferSize int
}

func LoadConfigDB() (*DBConfig, error) {
	if err := godotenv.Load(filepath.Join("config.env")); err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxOpen, err := strconv.Atoi(os.Getenv("DB_MAX_OPEN_CONNS"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}

	maxIdle, err := strconv.Atoi(os.Getenv("DB_MAX_IDLE_CONNS"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}

	return &DBConfig{
		Host:         os.Getenv("DB_HOST"),
		Port:         port,
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxIdle,
	}, nil
}

func LoadAppConfig() (*AppConfig, error) {
	_ = godotenv.Load(filepath.Join("config.env"))

	key := os.Getenv("ENCRYPTION_KEY")
	if len(key) != 64 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	timeout := 15 * time.Second
	if raw := os.Getenv("TX_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid TX_TIMEOUT_SECONDS: %q", raw)
		}
		timeout = time.Duration(seconds) * time.Second
	}

	bufferSize := 256
	if raw := os.Getenv("ACTIVITY_BUFFER_SIZE"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("invalid ACTIVITY_BUFFER_SIZE: %q", raw)
		}
		bufferSize = size
	}

	return &AppConfig{
		HTTPPort:           port,
		EncryptionKey:      key,
		TxTimeout:          timeout,
		ProviderBaseURL:    os.Getenv("PROVIDER_BASE_URL"),
		ProviderAPIKey:     os.Getenv("PROVIDER_API_KEY"),
		ProviderContract:   os.Getenv("PROVIDER_CONTRACT_CODE"),
		ActivityBufferSize: bufferSize,
	}, nil
}
