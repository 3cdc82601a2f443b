package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel string
	HTTP     HTTPConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Escrow   EscrowConfig
	Ledger   LedgerConfig
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled       bool
	BrokerAddress string
	Topic         string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// EscrowConfig holds the allowance-source configuration. Mode "memory" uses
// the in-process allowance ledger; mode "erc20" reads allowances from the
// token contracts over JSON-RPC.
type EscrowConfig struct {
	Mode           string
	RpcEndpoint    string
	SpenderAddress string
	RateLimit      float64
}

// LedgerConfig holds the authority identities and seed economic parameters.
type LedgerConfig struct {
	OwnerAddress    string
	TreasuryAddress string

	TransactionFeeBps uint64
	BridgeFeeBps      uint64
	MinTxAmount       uint64
	MaxTxAmount       uint64
	MinBridgeAmount   uint64
	MaxBridgeAmount   uint64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Not fatal, as env vars might be set externally
	}

	config := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTP: HTTPConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     time.Duration(getEnvAsInt("HTTP_READ_TIMEOUT", 15)) * time.Second,
			WriteTimeout:    time.Duration(getEnvAsInt("HTTP_WRITE_TIMEOUT", 15)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvAsInt("HTTP_SHUTDOWN_TIMEOUT", 10)) * time.Second,
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvAsBool("KAFKA_ENABLED", false),
			BrokerAddress: getEnv("KAFKA_BROKER_ADDRESS", "localhost:9092"),
			Topic:         getEnv("KAFKA_TOPIC", "ledger-events"),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "tuma_ledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Escrow: EscrowConfig{
			Mode:           getEnv("ESCROW_MODE", "memory"),
			RpcEndpoint:    getEnv("ESCROW_RPC_ENDPOINT", "https://svc.blockdaemon.com/ethereum/mainnet/native"),
			SpenderAddress: getEnv("ESCROW_SPENDER_ADDRESS", ""),
			RateLimit:      getEnvAsFloat("ESCROW_RATE_LIMIT", 4),
		},
		Ledger: LedgerConfig{
			OwnerAddress:      getEnv("LEDGER_OWNER_ADDRESS", ""),
			TreasuryAddress:   getEnv("LEDGER_TREASURY_ADDRESS", ""),
			TransactionFeeBps: getEnvAsUint("TRANSACTION_FEE_BPS", 50),
			BridgeFeeBps:      getEnvAsUint("BRIDGE_FEE_BPS", 25),
			MinTxAmount:       getEnvAsUint("MIN_TRANSACTION_AMOUNT", 100),
			MaxTxAmount:       getEnvAsUint("MAX_TRANSACTION_AMOUNT", 1000000),
			MinBridgeAmount:   getEnvAsUint("MIN_BRIDGE_AMOUNT", 1000),
			MaxBridgeAmount:   getEnvAsUint("MAX_BRIDGE_AMOUNT", 10000000),
		},
	}

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsUint gets an environment variable as uint64 or returns a default value
func getEnvAsUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
