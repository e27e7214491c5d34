package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort int

	// Database configuration
	DatabasePath string

	// LLM configuration
	LLM LLMConfig

	// Web search configuration
	SerperAPIKey string

	// Redis configuration (report cache)
	Cache CacheConfig

	// Analysis configuration
	Analysis AnalysisConfig

	// Completion webhook targets (comma separated URLs, optional)
	WebhookURLs []string
}

// LLMConfig holds LLM service configuration
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string

	// Per-role sampling temperatures
	TemperatureTool      float64
	TemperatureReasoning float64
	TemperatureCreative  float64
}

// CacheConfig holds Redis cache configuration
type CacheConfig struct {
	Host       string
	Port       string
	Password   string
	TTLMinutes int
}

// AnalysisConfig holds pipeline parameters and report targets
type AnalysisConfig struct {
	DefaultPeriod  string
	QuickPeriod    string
	MaxCompetitors int
	MaxNewsItems   int
	ReportMinWords int
	ReportMaxWords int
	RetentionDays  int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		ServerPort:   getEnvInt("SERVER_PORT", 8080),
		DatabasePath: getEnvOrDefault("DB_PATH", "business_analyst.db"),

		LLM: LLMConfig{
			BaseURL:              getEnvOrDefault("OLLAMA_BASE_URL", "http://127.0.0.1:11434"),
			APIKey:               getEnvOrDefault("LLM_API_KEY", ""),
			Model:                getEnvOrDefault("LLM_MODEL", "llama3.2"),
			TemperatureTool:      getEnvFloat("LLM_TEMPERATURE_TOOL", 0.1),
			TemperatureReasoning: getEnvFloat("LLM_TEMPERATURE_REASONING", 0.5),
			TemperatureCreative:  getEnvFloat("LLM_TEMPERATURE_CREATIVE", 0.6),
		},

		SerperAPIKey: getEnvOrDefault("SERPER_API_KEY", ""),

		Cache: CacheConfig{
			Host:       getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:       getEnvOrDefault("REDIS_PORT", "6379"),
			Password:   getEnvOrDefault("REDIS_PASSWORD", ""),
			TTLMinutes: getEnvInt("CACHE_TTL_MINUTES", 60),
		},

		Analysis: AnalysisConfig{
			DefaultPeriod:  getEnvOrDefault("DEFAULT_PERIOD", "1y"),
			QuickPeriod:    getEnvOrDefault("QUICK_PERIOD", "6mo"),
			MaxCompetitors: getEnvInt("MAX_COMPETITORS", 7),
			MaxNewsItems:   getEnvInt("MAX_NEWS_ITEMS", 10),
			ReportMinWords: getEnvInt("REPORT_MIN_WORDS", 800),
			ReportMaxWords: getEnvInt("REPORT_MAX_WORDS", 1200),
			RetentionDays:  getEnvInt("RETENTION_DAYS", 90),
		},

		WebhookURLs: splitList(os.Getenv("WEBHOOK_URLS")),
	}
}

// Validate reports configuration problems that do not prevent startup.
// Missing keys degrade features (search, cache) rather than abort the app.
func (c *Config) Validate() []string {
	var warnings []string

	if c.SerperAPIKey == "" {
		warnings = append(warnings, "SERPER_API_KEY is not set (needed for web search)")
	}
	if c.LLM.BaseURL == "" {
		warnings = append(warnings, "OLLAMA_BASE_URL is not set (needed for analysis)")
	}

	return warnings
}

// splitList splits a comma-separated env value into trimmed entries
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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
