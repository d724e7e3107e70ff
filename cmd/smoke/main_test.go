package main

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for k := range smokeDefaults {
		t.Setenv(k, "")
	}
	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "http://localhost:8080" || cfg.Strict || cfg.Timeout != 30*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_EnvThenFlags(t *testing.T) {
	t.Setenv("CHAUFFEUR_SMOKE_BASE_URL", "http://api.test/")
	t.Setenv("CHAUFFEUR_SMOKE_STRICT", "true")
	t.Setenv("CHAUFFEUR_SMOKE_TIMEOUT", "5s")
	t.Setenv("CHAUFFEUR_REDIS_ADDR", "redis:6379")

	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "http://api.test" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if !cfg.Strict || cfg.Timeout != 5*time.Second || cfg.RedisAddr != "redis:6379" {
		t.Errorf("cfg = %+v", cfg)
	}

	cfg, err = loadConfig([]string{"-timeout", "1m", "-strict=false"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Strict || cfg.Timeout != time.Minute {
		t.Errorf("flags did not override env: %+v", cfg)
	}
}
