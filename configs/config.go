package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port                string
	Environment         string
	APIKey              string
	OpenAIEndpoint      string
	OpenAIAPIKey        string
	OpenAIModel         string
	SalesDataDir        string
	ModelDir            string
	ConfidenceLevel     float64 // 予測区間の信頼水準（デフォルト: 0.95）
	DefaultServiceLevel float64 // 生産計画のサービスレベル目標（デフォルト: 0.99）
	MaxHorizonDays      int     // 予測可能な最大日数（デフォルト: 90日）
	WinsorizePercentile float64 // 外れ値処理のパーセンタイル（デフォルト: 0.99）
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:                getEnv("PORT", "8080"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		APIKey:              getEnv("API_KEY", ""),
		OpenAIEndpoint:      getEnv("OPENAI_ENDPOINT", "https://api.openai.com/v1"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		SalesDataDir:        getEnv("SALES_DATA_DIR", "data/sales"),
		ModelDir:            getEnv("MODEL_DIR", "models"),
		ConfidenceLevel:     getEnvFloat("CONFIDENCE_LEVEL", 0.95),
		DefaultServiceLevel: getEnvFloat("DEFAULT_SERVICE_LEVEL", 0.99),
		MaxHorizonDays:      getEnvInt("MAX_HORIZON_DAYS", 90),
		WinsorizePercentile: getEnvFloat("WINSORIZE_PERCENTILE", 0.99),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvInt gets an int environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
