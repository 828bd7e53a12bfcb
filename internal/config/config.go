package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the application configuration, loaded from environment variables.
type Config struct {
	Server
	PostgreSQL
	ShardVerifier
}

type Server struct {
	Port string
}

func (s Server) Addr() string {
	return fmt.Sprintf("0.0.0.0:%s", s.Port)
}

type PostgreSQL struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// DSN returns the connection string for pgxpool.
func (c PostgreSQL) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

type ShardVerifier struct {
	BaseURL string
	Timeout time.Duration
}

func Load() *Config {
	return &Config{
		Server: Server{
			Port: getEnv("PORT", "8080"),
		},
		PostgreSQL: PostgreSQL{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Database: getEnv("DB_DATABASE", "quorum_vault"),
			Username: getEnv("DB_USERNAME", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		ShardVerifier: ShardVerifier{
			BaseURL: getEnv("SHARD_VERIFIER_URL", "http://localhost:9090"),
			Timeout: time.Duration(getEnvInt("SHARD_VERIFIER_TIMEOUT_SECONDS", 5)) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
