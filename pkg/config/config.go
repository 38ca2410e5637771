package config

import (
	"os"
	"strconv"
)

type Config struct {
	GoogleApiKey   string
	ExaApiKey      string
	SandboxApiKey  string
	SandboxURL     string
	DatabaseURL    string
	ReasoningModel string
	FastModel      string
	Port           string
	MaxSteps       int
	SearchResults  int
	SearchParallel int
	ContentChars   int
	DisplayChars   int
	SynthesisTopN  int
	DigestTopK     int
}

func Load() *Config {
	return &Config{
		GoogleApiKey:   getEnv("GOOGLE_API_KEY", ""),
		ExaApiKey:      getEnv("EXA_API_KEY", ""),
		SandboxApiKey:  getEnv("SANDBOX_API_KEY", ""),
		SandboxURL:     getEnv("SANDBOX_URL", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ReasoningModel: getEnv("REASONING_MODEL", "gemini-3-pro-preview"),
		FastModel:      getEnv("FAST_MODEL", "gemini-3-flash-preview"),
		Port:           getEnv("PORT", "3000"),
		MaxSteps:       getEnvAsInt("MAX_STEPS", 5),
		SearchResults:  getEnvAsInt("SEARCH_RESULTS", 8),
		SearchParallel: getEnvAsInt("SEARCH_PARALLEL", 3),
		ContentChars:   getEnvAsInt("CONTENT_CHARS", 3000),
		DisplayChars:   getEnvAsInt("DISPLAY_CHARS", 2000),
		SynthesisTopN:  getEnvAsInt("SYNTHESIS_TOP_N", 10),
		DigestTopK:     getEnvAsInt("DIGEST_TOP_K", 5),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
