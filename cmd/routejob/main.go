package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"visit-route-service/internal/adapters/cache"
	"visit-route-service/internal/adapters/distance"
	"visit-route-service/internal/adapters/featureservice"
	"visit-route-service/internal/adapters/geo"
	"visit-route-service/internal/adapters/notify"
	"visit-route-service/internal/adapters/routing"
	"visit-route-service/internal/adapters/staging"
	"visit-route-service/internal/config"
	"visit-route-service/internal/jobrun"
	"visit-route-service/internal/platform/db"
	"visit-route-service/internal/platform/httpx"
	"visit-route-service/internal/platform/logging"
	"visit-route-service/internal/platform/obs"
	"visit-route-service/internal/ports"
	"visit-route-service/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

// Geocodes and distances barely move; a month keeps ORS quota usage low.
const cacheTTL = 30 * 24 * time.Hour

// main is the job composition root. It wires the concrete adapters behind
// ports, runs one route-generation job and exits non-zero when it fails.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		log.Printf("route job failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	params, err := config.LoadParams(cfg.RunParamsPath)
	if err != nil {
		return err
	}

	jr, err := jobrun.New(cfg.ProcessName, time.Now(), loc, params)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.ProcessName, logging.Options{
		Path:       cfg.LogPath,
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		Output:     cfg.LogOutput,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		return err
	}
	logger = logger.WithField("run_id", jr.ID())
	entry := logger.Entry()
	obs.SetLogger(entry)
	ctx = obs.WithRunID(ctx, jr.ID())

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	geocodeCache, distanceCache, closeCaches, err := openCaches(ctx, cfg, sqlDB)
	if err != nil {
		return err
	}
	defer closeCaches()

	geocoder, provider, err := distanceProviders(cfg, params, distanceCache, geocodeCache)
	if err != nil {
		return err
	}

	features := featureservice.NewClient(cfg.FeatureServiceToken, httpx.New(60*time.Second))
	workAreas := services.NewWorkAreaCache(features, params.WorkAreasFeatureURL)
	store := staging.NewPostgresStore(sqlDB, jr.FullName())

	notifier, err := newNotifier(cfg, jr, entry)
	if err != nil {
		return err
	}

	orch, err := services.NewOrchestrator(services.OrchestratorDeps{
		Run:      jr,
		Staging:  store,
		Notifier: notifier,
		Geo:      geo.NewEngine(features, geocoder, params, entry),
		Sync:     services.NewCompanySynchronizer(features, store, workAreas, params, entry),
		Tools: services.Selector(services.ToolDeps{
			Run:       jr,
			Features:  features,
			Staging:   store,
			WorkAreas: workAreas,
			Engine:    routing.NewEngine(provider),
			Log:       entry,
		}),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	return orch.Run(ctx)
}

// openCaches uses Redis when REDIS_URL is set and the Postgres cache tables
// otherwise.
func openCaches(ctx context.Context, cfg *config.Config, sqlDB *sql.DB) (ports.GeocodeCache, ports.DistanceCache, func(), error) {
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := cache.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rc := cache.NewRedisCache(rdb, cacheTTL)
		return rc.Geocode(), rc.Distance(), func() { _ = rdb.Close() }, nil
	}

	if err := cache.InitSchema(ctx, sqlDB); err != nil {
		return nil, nil, nil, err
	}
	return cache.NewSQLGeocodeCache(sqlDB, cacheTTL), cache.NewSQLDistanceCache(sqlDB, cacheTTL), func() {}, nil
}

// distanceProviders returns the ORS geocoder and the routing distance source.
func distanceProviders(
	cfg *config.Config,
	params config.Params,
	dc ports.DistanceCache,
	gc ports.GeocodeCache,
) (ports.Geocoder, ports.DistanceProvider, error) {
	ors, err := distance.NewORSProvider(cfg.ORSAPIKey, dc, gc)
	if err != nil {
		return nil, nil, fmt.Errorf("ors provider: %w", err)
	}

	switch cfg.DistanceSource {
	case config.DistanceHaversine:
		return ors, distance.NewHaversineProvider(params.AverageSpeedKmh), nil
	case config.DistanceORSMatrix:
		return ors, ors, nil
	default:
		return ors, pairwise{ors}, nil
	}
}

// pairwise hides the matrix endpoint so the engine asks one pair at a time.
type pairwise struct{ ports.DistanceProvider }

func newNotifier(cfg *config.Config, jr *jobrun.Run, entry logrus.FieldLogger) (ports.Notifier, error) {
	if !cfg.MailEnabled() {
		return notify.NewLogNotifier(entry, jr), nil
	}
	return notify.NewEmailNotifier(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		To:       cfg.MailTo,
	}, jr)
}
