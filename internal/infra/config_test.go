package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("OUTPUT_DIR", "")
	t.Setenv("BATCH_CONCURRENCY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Fatalf("app env = %q, want development", cfg.AppEnv)
	}
	if cfg.OutputDir != "./generated" {
		t.Fatalf("output dir = %q, want ./generated", cfg.OutputDir)
	}
	if cfg.DefaultConcurrency != 2 {
		t.Fatalf("concurrency = %d, want 2", cfg.DefaultConcurrency)
	}
	if cfg.PerProjectEstimate != 2*time.Minute {
		t.Fatalf("per-project estimate = %s, want 2m", cfg.PerProjectEstimate)
	}
	if cfg.MirrorToObjects() {
		t.Fatalf("object mirroring should be off without S3_ENDPOINT")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("BATCH_CONCURRENCY", "5")
	t.Setenv("OUTPUT_DIR", "/tmp/assets")
	t.Setenv("S3_ENDPOINT", "minio:9000")
	t.Setenv("PER_PROJECT_ESTIMATE_SECONDS", "45")
	t.Setenv("ALLOWED_ORIGINS", "https://studio.example.com, https://admin.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DefaultConcurrency != 5 {
		t.Fatalf("concurrency = %d, want 5", cfg.DefaultConcurrency)
	}
	if cfg.OutputDir != "/tmp/assets" {
		t.Fatalf("output dir = %q", cfg.OutputDir)
	}
	if !cfg.MirrorToObjects() {
		t.Fatalf("object mirroring should be on with S3_ENDPOINT")
	}
	if cfg.PerProjectEstimate != 45*time.Second {
		t.Fatalf("per-project estimate = %s, want 45s", cfg.PerProjectEstimate)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("allowed origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigClampsConcurrency(t *testing.T) {
	t.Setenv("BATCH_CONCURRENCY", "0")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DefaultConcurrency != 1 {
		t.Fatalf("concurrency = %d, want clamped to 1", cfg.DefaultConcurrency)
	}
}
