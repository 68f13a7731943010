package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Aleo     AleoConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
	// AdminAddress is the only account allowed to create and resolve events.
	AdminAddress string
}

// AleoConfig holds settings for talking to the Aleo network
type AleoConfig struct {
	ExplorerURL     string
	ProgramID       string
	Network         string
	HasherURL       string
	WalletBridgeURL string
	FeeMicrocredits uint64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "zkpredict"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			AdminAddress: getEnv("APP_ADMIN", ""),
		},
		Aleo: AleoConfig{
			ExplorerURL:     getEnv("ALEO_EXPLORER_URL", "https://api.explorer.provable.com/v1/testnet/program"),
			ProgramID:       getEnv("ALEO_PROGRAM_ID", "zkpredict_v1.aleo"),
			Network:         getEnv("ALEO_NETWORK", "testnet"),
			HasherURL:       getEnv("HASHER_URL", "http://localhost:3030/hash"),
			WalletBridgeURL: getEnv("WALLET_BRIDGE_URL", ""),
			FeeMicrocredits: getEnvUint("ALEO_FEE_MICROCREDITS", 1_000_000),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.App.AdminAddress == "" {
		return nil, fmt.Errorf("APP_ADMIN is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvUint gets an unsigned integer environment variable with a fallback
func getEnvUint(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}
