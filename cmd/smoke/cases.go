// README: Smoke checks: environment, reference quotes, tables, and an authenticated booking.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"chauffeur/internal/infra"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{cfg: cfg, httpc: &http.Client{Timeout: 10 * time.Second}}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
			defer db.Close()
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer r.redis.Close()
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

type quoteCase struct {
	departure, arrival string
	distanceKm         *float64
	from, to           string
	price              float64
}

func km(v float64) *float64 { return &v }

var referenceQuotes = []quoteCase{
	{"Champs-Élysées, 75008 Paris", "Tour Eiffel, 75007 Paris", nil, "PARIS", "PARIS", 50},
	{"Gare de Lyon, 75012 Paris", "Vincennes, 94300", nil, "PARIS", "PREMIUM_BANLIEUE", 65},
	{"Nation, 75012 Paris", "Montreuil, 93100", nil, "PARIS", "STANDARD_BANLIEUE", 55},
	{"Neuilly-sur-Seine, 92200", "Levallois-Perret, 92300", nil, "PREMIUM_BANLIEUE", "PREMIUM_BANLIEUE", 45},
	{"Paris 75001", "Versailles, 78000", km(18), "PARIS", "OTHER", 75},
}

func (r *Runner) cases() []TestCase {
	tests := []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: statusSkip, Note: "dsn not configured"}
			}
			var n int
			if err := r.db.QueryRow(ctx, `SELECT count(*) FROM zones`).Scan(&n); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			return Result{Status: statusPass, Note: fmt.Sprintf("%d zones", n)}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: statusSkip, Note: "redis not configured"}
			}
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			return Result{Status: statusPass}
		}},
		{Name: "HTTP: health", Run: func(ctx context.Context, r *Runner) Result {
			status, _, lat, err := r.call(ctx, http.MethodGet, "/health", "", nil)
			if err != nil || status != http.StatusOK {
				return Result{Status: statusFail, Latency: lat, Note: fmt.Sprintf("status=%d err=%v", status, err)}
			}
			return Result{Status: statusPass, Latency: lat}
		}},
		{Name: "HTTP: pricing tables", Run: func(ctx context.Context, r *Runner) Result {
			status, body, lat, err := r.call(ctx, http.MethodGet, "/api/pricing/zones", "", nil)
			if err != nil || status != http.StatusOK {
				return Result{Status: statusFail, Latency: lat, Note: fmt.Sprintf("status=%d err=%v", status, err)}
			}
			var t struct {
				Zones    []json.RawMessage `json:"zones"`
				Problems []string          `json:"problems"`
			}
			if err := json.Unmarshal(body, &t); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if len(t.Problems) > 0 {
				return Result{Status: statusFail, Latency: lat, Note: fmt.Sprintf("problems: %v", t.Problems)}
			}
			return Result{Status: statusPass, Latency: lat, Note: fmt.Sprintf("%d zones", len(t.Zones))}
		}},
	}

	for _, qc := range referenceQuotes {
		qc := qc
		tests = append(tests, TestCase{
			Name: fmt.Sprintf("Quote: %s -> %s", qc.from, qc.to),
			Run:  func(ctx context.Context, r *Runner) Result { return r.quote(ctx, qc) },
		})
	}

	tests = append(tests, TestCase{Name: "Booking: create and cancel", Run: func(ctx context.Context, r *Runner) Result {
		return r.booking(ctx)
	}})
	return tests
}

func (r *Runner) quote(ctx context.Context, qc quoteCase) Result {
	req := map[string]any{"departure_address": qc.departure, "arrival_address": qc.arrival}
	if qc.distanceKm != nil {
		req["distance_km"] = *qc.distanceKm
	}
	status, body, lat, err := r.call(ctx, http.MethodPost, "/api/pricing/quote", "", req)
	if err != nil || status != http.StatusOK {
		return Result{Status: statusFail, Latency: lat, Note: fmt.Sprintf("status=%d err=%v body=%s", status, err, body)}
	}
	var q struct {
		Price         float64 `json:"price"`
		DepartureZone string  `json:"departure_zone"`
		ArrivalZone   string  `json:"arrival_zone"`
	}
	if err := json.Unmarshal(body, &q); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if q.DepartureZone != qc.from || q.ArrivalZone != qc.to || q.Price != qc.price {
		return Result{Status: statusFail, Latency: lat, Note: fmt.Sprintf("got %s->%s %.2f, want %.2f", q.DepartureZone, q.ArrivalZone, q.Price, qc.price)}
	}
	return Result{Status: statusPass, Latency: lat, Note: fmt.Sprintf("%.2f", q.Price)}
}

func (r *Runner) booking(ctx context.Context) Result {
	if r.cfg.JWTSecret == "" {
		return Result{Status: statusSkip, Note: "jwt secret not configured"}
	}
	token, err := infra.NewJWTVerifier(r.cfg.JWTSecret).Issue("smoke-customer", "", "smoke@example.com", 5*time.Minute)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	status, body, lat, err := r.call(ctx, http.MethodPost, "/api/reservations", token, map[string]any{
		"customer_name":     "Smoke Test",
		"customer_email":    "smoke@example.com",
		"customer_phone":    "+33600000000",
		"departure_address": "Champs-Élysées, 75008 Paris",
		"arrival_address":   "Tour Eiffel, 75007 Paris",
		"pickup_at":         time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"passengers":        1,
	})
	if err != nil || status != http.StatusCreated {
		return Result{Status: statusFail, Latency: lat, Note: fmt.Sprintf("create status=%d err=%v body=%s", status, err, body)}
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	status, body, _, err = r.call(ctx, http.MethodPost, "/api/reservations/"+created.ID+"/cancel", token, map[string]any{"reason": "smoke"})
	if err != nil || status != http.StatusOK {
		return Result{Status: statusFail, Note: fmt.Sprintf("cancel status=%d err=%v body=%s", status, err, body)}
	}
	return Result{Status: statusPass, Latency: lat, Note: created.ID}
}

func (r *Runner) call(ctx context.Context, method, path, token string, body any) (int, []byte, time.Duration, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, nil, 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, &buf)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	lat := time.Since(start)
	if err != nil {
		return 0, nil, lat, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, lat, err
}
