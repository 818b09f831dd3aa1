// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the generation service.
type Config struct {
	Port        string
	Environment string

	// LLM provider credentials
	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string

	// Artifact storage
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	AWSBucketName      string

	// Infra provisioning
	GenezioToken string
	CoreAPIURL   string

	// Persistence
	DatabaseURL string
	RedisURL    string

	// Timeouts (transport-level defaults are too open-ended for LLM and
	// CLI calls, so both are configurable here)
	LLMTimeout       time.Duration
	BuildStepTimeout time.Duration
}

// Load reads configuration from .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiKey:    os.Getenv("GOOGLE_API_KEY"),

		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          getEnv("AWS_REGION", "eu-central-1"),
		AWSBucketName:      os.Getenv("AWS_BUCKET_NAME"),

		GenezioToken: os.Getenv("GENEZIO_TOKEN"),
		CoreAPIURL:   getEnv("CORE_API_URL", "http://0.0.0.0:8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		LLMTimeout:       getDuration("LLM_TIMEOUT", 120*time.Second),
		BuildStepTimeout: getDuration("BUILD_STEP_TIMEOUT", 10*time.Minute),
	}
}

// Validate fails fast when a required secret is missing. The required set
// depends on which service is starting; callers pass the keys they need.
func (c *Config) Validate(required ...string) error {
	values := map[string]string{
		"OPENAI_API_KEY":        c.OpenAIKey,
		"ANTHROPIC_API_KEY":     c.AnthropicKey,
		"GOOGLE_API_KEY":        c.GeminiKey,
		"AWS_ACCESS_KEY_ID":     c.AWSAccessKeyID,
		"AWS_SECRET_ACCESS_KEY": c.AWSSecretAccessKey,
		"AWS_BUCKET_NAME":       c.AWSBucketName,
		"GENEZIO_TOKEN":         c.GenezioToken,
	}

	var missing []string
	for _, key := range required {
		if strings.TrimSpace(values[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
