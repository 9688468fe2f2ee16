package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the core's runtime configuration, loaded from environment
// variables with the defaults shown in LoadFromEnv.
type Config struct {
	// Store Gateway
	StoreHost     string
	StorePort     string
	StoreName     string
	StoreUser     string
	StorePassword string
	StorePoolSize int
	StoreTimeout  int // milliseconds

	// Metric Engine defaults
	MinMinutesDefault int
	MinCohortSize     int

	// Role Engine
	RoleMinEvents int

	// Similarity Engine. RoleWeight and StatsWeight are not passed to the
	// similarity engine: a query with no weights gets the 0.6/0.4 default
	// from similarity.Weights.Normalised, whatever these fields hold.
	RoleWeight      float64
	StatsWeight     float64
	SimilarityClamp bool

	// Query Parser / LLM endpoint
	LLM LLMConfig

	// Metric Catalogue
	CatalogueFilePath string

	// Overall request timeout, milliseconds
	RequestTimeoutMS int
}

// LLMConfig holds the language-model endpoint configuration used exclusively
// by the Query Parser.
type LLMConfig struct {
	Enabled     bool
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	TimeoutMS   int
}

// LoadFromEnv loads configuration from environment variables, falling back to
// documented defaults for anything unset. A .env file is loaded
// opportunistically; its absence is not an error.
func LoadFromEnv() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		StoreHost:     getEnvOrDefault("STORE_HOST", "localhost"),
		StorePort:     getEnvOrDefault("STORE_PORT", "5432"),
		StoreName:     getEnvOrDefault("STORE_NAME", "scouting"),
		StoreUser:     getEnvOrDefault("STORE_USER", "scouting"),
		StorePassword: getEnvOrDefault("STORE_PASSWORD", ""),
		StorePoolSize: getEnvInt("STORE_POOL_SIZE", 10),
		StoreTimeout:  getEnvInt("STORE_TIMEOUT_MS", 5000),

		MinMinutesDefault: getEnvInt("MIN_MINUTES_DEFAULT", 450),
		MinCohortSize:     getEnvInt("MIN_COHORT_SIZE", 20),

		RoleMinEvents: getEnvInt("ROLE_MIN_EVENTS", 100),

		RoleWeight:      getEnvFloat("ROLE_WEIGHT", 0.6),
		StatsWeight:     getEnvFloat("STATS_WEIGHT", 0.4),
		SimilarityClamp: getEnvOrDefault("SIMILARITY_CLAMP", "true") == "true",

		LLM: LLMConfig{
			Enabled:     getEnvOrDefault("LLM_ENABLED", "false") == "true",
			Endpoint:    getEnvOrDefault("LLM_ENDPOINT", "https://api.openai.com/v1"),
			APIKey:      getEnvOrDefault("LLM_API_KEY", ""),
			Model:       getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.1),
			TimeoutMS:   getEnvInt("LLM_TIMEOUT_MS", 15000),
		},

		CatalogueFilePath: getEnvOrDefault("CATALOGUE_FILE", "catalogue.yaml"),

		RequestTimeoutMS: getEnvInt("REQUEST_TIMEOUT_MS", 10000),
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
