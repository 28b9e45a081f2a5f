package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	// LLM Configuration
	LLMProvider   string // "openai" or "echo"
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	LLMTimeout    time.Duration
	// Gate and quota
	HumanToken       string
	RateLimitWindow  time.Duration
	FreeQueryLimit   int
	PaidQueryLimit   int
	PaymentURL       string
	PaymentRound2URL string
	// Logging
	LogDir      string
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "5000"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		// LLM Configuration
		LLMProvider:   getEnv("LLM_PROVIDER", getDefaultProvider(env)),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", DefaultModel),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		LLMTimeout:    getDuration("LLM_TIMEOUT", DefaultLLMTimeout),
		// Gate and quota
		HumanToken:       getEnv("HUMAN_TOKEN", DefaultHumanToken),
		RateLimitWindow:  getDuration("RATE_LIMIT_WINDOW", DefaultRateLimitWindow),
		FreeQueryLimit:   getInt("FREE_QUERY_LIMIT", DefaultFreeQueryLimit),
		PaidQueryLimit:   getInt("PAID_QUERY_LIMIT", DefaultPaidQueryLimit),
		PaymentURL:       getEnv("PAYMENT_URL", ""),
		PaymentRound2URL: getEnv("PAYMENT_ROUND2_URL", ""),
		// Logging
		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getInt("LOG_MAX_FILES", 10),
	}
}

// getDefaultProvider returns the default generation backend based on environment
func getDefaultProvider(env string) string {
	if env == "test" {
		return "echo"
	}
	return "openai"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt reads a positive integer, falling back to the default on absence or garbage
func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

// getDuration accepts Go duration syntax ("90s") or a bare number of seconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
