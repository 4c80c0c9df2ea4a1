package config

import (
	"os"
	"strconv"
)

// Config holds process configuration read from the environment.
type Config struct {
	LogLevel     string
	DBDriver     string
	DatabaseURL  string
	RedisAddr    string
	RedisDB      int
	OTLPEndpoint string
	ProfilePath  string
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("COLONY_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	driver := os.Getenv("COLONY_DB_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}

	dbURL := os.Getenv("COLONY_DATABASE_URL")
	if dbURL == "" {
		// Default to a local sqlite file
		dbURL = "file:data/colony.db"
	}

	redisDB, err := strconv.Atoi(os.Getenv("COLONY_REDIS_DB"))
	if err != nil {
		redisDB = 0
	}

	return &Config{
		LogLevel:     logLevel,
		DBDriver:     driver,
		DatabaseURL:  dbURL,
		RedisAddr:    os.Getenv("COLONY_REDIS_ADDR"),
		RedisDB:      redisDB,
		OTLPEndpoint: os.Getenv("COLONY_OTLP_ENDPOINT"),
		ProfilePath:  os.Getenv("COLONY_NETWORK_PROFILE"),
	}
}

// TelemetryEnabled reports whether an OTLP collector is configured.
func (c *Config) TelemetryEnabled() bool {
	return c.OTLPEndpoint != ""
}
