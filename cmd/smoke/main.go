// README: Smoke runner; replays the reference pricing scenarios and a booking against a running API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	results := NewRunner(cfg).RunAll(ctx)

	fmt.Println("\n== Summary ==")
	pass, fail, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case statusPass:
			pass++
		case statusFail:
			fail++
		case statusSkip:
			skipped++
		}
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", pass, fail, skipped)

	if fail > 0 || (cfg.Strict && skipped > 0) {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL   string
	DSN       string
	RedisAddr string
	JWTSecret string
	Strict    bool
	Timeout   time.Duration
}

var smokeDefaults = map[string]any{
	"CHAUFFEUR_SMOKE_BASE_URL": "http://localhost:8080",
	"CHAUFFEUR_DB_DSN":         "",
	"CHAUFFEUR_REDIS_ADDR":     "",
	"CHAUFFEUR_JWT_SECRET":     "",
	"CHAUFFEUR_SMOKE_STRICT":   false,
	"CHAUFFEUR_SMOKE_TIMEOUT":  30 * time.Second,
}

// loadConfig reads defaults from the environment; flags override them.
func loadConfig(args []string) (Config, error) {
	v := viper.New()
	for k, def := range smokeDefaults {
		v.SetDefault(k, def)
	}
	v.AutomaticEnv()

	var cfg Config
	fs := flag.NewFlagSet("smoke", flag.ContinueOnError)
	fs.StringVar(&cfg.BaseURL, "base-url", v.GetString("CHAUFFEUR_SMOKE_BASE_URL"), "API base URL")
	fs.StringVar(&cfg.DSN, "dsn", v.GetString("CHAUFFEUR_DB_DSN"), "Postgres DSN (optional)")
	fs.StringVar(&cfg.RedisAddr, "redis", v.GetString("CHAUFFEUR_REDIS_ADDR"), "Redis address (optional)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", v.GetString("CHAUFFEUR_JWT_SECRET"), "HS256 secret used to mint a customer token")
	fs.BoolVar(&cfg.Strict, "strict", v.GetBool("CHAUFFEUR_SMOKE_STRICT"), "Fail on skipped checks")
	fs.DurationVar(&cfg.Timeout, "timeout", v.GetDuration("CHAUFFEUR_SMOKE_TIMEOUT"), "Total timeout")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}
