package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHAUFFEUR_JWT_SECRET", "s3cret")

	cfg, err := load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.Pricing.DefaultBase != 30 || cfg.Pricing.DefaultPerKm != 2.5 {
		t.Errorf("default tariff = %v + %v/km, want 30 + 2.5/km", cfg.Pricing.DefaultBase, cfg.Pricing.DefaultPerKm)
	}
	if cfg.Pricing.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", cfg.Pricing.Currency)
	}
	if cfg.Pricing.CacheTTL != 30*time.Second {
		t.Errorf("cache TTL = %v, want 30s", cfg.Pricing.CacheTTL)
	}
	if cfg.Kafka.Brokers != nil {
		t.Errorf("brokers = %v, want none", cfg.Kafka.Brokers)
	}
}

func TestLoad_EnvFileAndOverride(t *testing.T) {
	path := writeEnvFile(t, "CHAUFFEUR_JWT_SECRET=fromfile\nCHAUFFEUR_HTTP_ADDR=:9000\nCHAUFFEUR_PRICING_DEFAULT_PER_KM=3.1\n")
	t.Setenv("CHAUFFEUR_HTTP_ADDR", ":9100")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "fromfile" {
		t.Errorf("JWTSecret = %q, want fromfile", cfg.Auth.JWTSecret)
	}
	if cfg.HTTP.Addr != ":9100" {
		t.Errorf("HTTP.Addr = %q, want env override :9100", cfg.HTTP.Addr)
	}
	if cfg.Pricing.DefaultPerKm != 3.1 {
		t.Errorf("DefaultPerKm = %v, want 3.1", cfg.Pricing.DefaultPerKm)
	}
}

func TestLoad_KafkaBrokers(t *testing.T) {
	t.Setenv("CHAUFFEUR_JWT_SECRET", "s3cret")
	t.Setenv("CHAUFFEUR_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")

	cfg, err := load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "kafka-1:9092" || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "jwt without secret", env: map[string]string{"CHAUFFEUR_JWT_SECRET": ""}},
		{name: "firebase without project", env: map[string]string{"CHAUFFEUR_AUTH_PROVIDER": "firebase"}},
		{name: "unknown provider", env: map[string]string{"CHAUFFEUR_AUTH_PROVIDER": "ldap", "CHAUFFEUR_JWT_SECRET": "x"}},
		{name: "push without firebase project", env: map[string]string{"CHAUFFEUR_JWT_SECRET": "x", "CHAUFFEUR_FCM_TOPIC": "staff"}},
		{name: "negative tariff", env: map[string]string{"CHAUFFEUR_JWT_SECRET": "x", "CHAUFFEUR_PRICING_DEFAULT_BASE": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := load(""); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
