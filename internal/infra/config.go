package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	// Job store backends. The in-memory store is used when neither is set.
	DatabaseURL string
	RedisURL    string

	// Provider credentials and endpoints.
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	ReplicateAPIKey  string
	ReplicateModel   string
	ReplicateBaseURL string

	// Output settings.
	ProjectsDir string
	OutputDir   string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	// Batch defaults.
	DefaultConcurrency int
	PerProjectEstimate time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	AllowedOrigins     []string
	RateLimitPerMinute int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getEnv("OPENAI_IMAGE_MODEL", "dall-e-3"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ReplicateAPIKey:    os.Getenv("REPLICATE_API_KEY"),
		ReplicateModel:     getEnv("REPLICATE_MODEL", "flux-schnell"),
		ReplicateBaseURL:   getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		ProjectsDir:        getEnv("PROJECTS_DIR", "./projects"),
		OutputDir:          getEnv("OUTPUT_DIR", "./generated"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3AccessKey:        os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:        os.Getenv("S3_SECRET_KEY"),
		S3Bucket:           getEnv("S3_BUCKET", "generated-assets"),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3UseSSL:           getEnvBool("S3_USE_SSL", false),
		DefaultConcurrency: getEnvInt("BATCH_CONCURRENCY", 2),
		PerProjectEstimate: time.Second * time.Duration(getEnvInt("PER_PROJECT_ESTIMATE_SECONDS", 120)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		AllowedOrigins:     splitList(os.Getenv("ALLOWED_ORIGINS")),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 0),
	}

	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("OUTPUT_DIR is required")
	}
	if cfg.DefaultConcurrency < 1 {
		cfg.DefaultConcurrency = 1
	}
	if cfg.PerProjectEstimate <= 0 {
		cfg.PerProjectEstimate = 2 * time.Minute
	}

	return cfg, nil
}

// MirrorToObjects reports whether generated variants should also be uploaded
// to the configured object store.
func (c *Config) MirrorToObjects() bool {
	return c != nil && c.S3Endpoint != ""
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
