// README: Entry point; loads config, wires services, starts the HTTP server and the zone cache listener.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"

	"chauffeur/internal/config"
	httptransport "chauffeur/internal/http"
	"chauffeur/internal/http/handlers"
	"chauffeur/internal/infra"
	"chauffeur/internal/logger"
	"chauffeur/internal/maps"
	"chauffeur/internal/modules/pricing"
	"chauffeur/internal/modules/reservation"
	"chauffeur/internal/modules/zone"
	"chauffeur/migrations"
)

func main() {
	bootLog, _ := logger.New(logger.Config{Level: "info", Output: "stderr"})
	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatalf("config: %v", err)
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		bootLog.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var fbApp *firebase.App
	if cfg.Auth.Provider == config.AuthProviderFirebase || cfg.Push.Topic != "" {
		fbApp, err = infra.NewFirebaseApp(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentialsFile)
		if err != nil {
			log.Fatalf("firebase: %v", err)
		}
	}
	verifier, err := newVerifier(ctx, cfg, fbApp)
	if err != nil {
		log.Fatalf("auth init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer dbPool.Close()
	if err := migrations.Apply(ctx, dbPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		log.WithError(err).Warn("redis unavailable; zone catalog cached per instance only")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	zoneStore := zone.NewStore(dbPool)
	zoneCache := zone.NewCache(zoneStore, redisClient, cfg.Pricing.CacheTTL, log)
	zoneSvc := zone.NewService(zoneStore, zoneCache, log)
	go zoneCache.Listen(ctx)

	pricingSvc := pricing.NewService(zoneCache, pricing.Tariff{
		Base:     cfg.Pricing.DefaultBase,
		PerKm:    cfg.Pricing.DefaultPerKm,
		Currency: cfg.Pricing.Currency,
	}, log)
	if _, err := zoneCache.Catalog(ctx); err != nil {
		log.WithError(err).Warn("initial zone catalog load failed")
	}

	var (
		distances reservation.DistanceProvider
		places    handlers.Autocompleter
	)
	if cfg.Maps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps: %v", err)
		}
		distances = maps.NewRouteService(mapsClient)
		places = maps.NewPlacesService(mapsClient)
	} else {
		log.Warn("CHAUFFEUR_MAPS_API_KEY not set; distances must be supplied by clients")
	}

	publishers := reservation.Publishers{reservation.NewLogPublisher(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := reservation.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		publishers = append(publishers, kp)
	}
	if cfg.Push.Topic != "" {
		msgClient, err := fbApp.Messaging(ctx)
		if err != nil {
			log.Fatalf("firebase messaging: %v", err)
		}
		publishers = append(publishers, reservation.NewPushPublisher(msgClient, cfg.Push.Topic))
	}

	reservationSvc := reservation.NewService(reservation.NewStore(dbPool), pricingSvc, distances, publishers, log)

	gin.SetMode(gin.ReleaseMode)
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Pricing:      pricingSvc,
		Zones:        zoneSvc,
		Reservations: reservationSvc,
		Places:       places,
		Verifier:     verifier,
		Log:          log,
	})
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("http shutdown")
		}
	}()

	log.WithField("addr", cfg.HTTP.Addr).Info("chauffeur api listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http: %v", err)
	}
	log.Info("chauffeur api stopped")
}

func newVerifier(ctx context.Context, cfg config.Config, app *firebase.App) (infra.TokenVerifier, error) {
	if cfg.Auth.Provider == config.AuthProviderFirebase {
		return infra.NewFirebaseVerifier(ctx, app)
	}
	return infra.NewJWTVerifier(cfg.Auth.JWTSecret), nil
}
