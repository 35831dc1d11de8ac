package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/natalchart/internal/blob/s3"
	"github.com/alanyoungcy/natalchart/internal/cache/redis"
	"github.com/alanyoungcy/natalchart/internal/chart"
	"github.com/alanyoungcy/natalchart/internal/config"
	"github.com/alanyoungcy/natalchart/internal/domain"
	"github.com/alanyoungcy/natalchart/internal/ephemeris"
	"github.com/alanyoungcy/natalchart/internal/notify"
	"github.com/alanyoungcy/natalchart/internal/server/handler"
	"github.com/alanyoungcy/natalchart/internal/service"
	"github.com/alanyoungcy/natalchart/internal/store/postgres"
)

// Dependencies bundles what the modes need. Backends that are disabled in
// the configuration stay nil and the services run without them.
type Dependencies struct {
	// Stores
	ChartStore domain.ChartStore
	AuditStore domain.AuditStore

	// Caches
	ChartCache  domain.ChartCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	BlobReader domain.BlobReader
	Exporter   *s3blob.Exporter

	Notifier *notify.Notifier

	Engine  *chart.Engine
	Charts  *service.ChartService
	Batches *service.BatchService

	// Checks are probed by the health endpoint.
	Checks map[string]handler.Check
}

// Wire constructs the concrete implementations from cfg. The returned
// cleanup releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Checks: make(map[string]handler.Check)}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.ChartStore = postgres.NewChartStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.Checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}

	// --- Redis ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			Timeout:    cfg.Redis.Timeout.Duration,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		streamMaxLen := cfg.Redis.StreamMaxLen
		if streamMaxLen <= 0 {
			streamMaxLen = redis.DefaultStreamMaxLen
		}
		deps.ChartCache = redis.NewChartCache(redisClient, cfg.Redis.ChartTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient, streamMaxLen)
		deps.Checks["redis"] = redisClient.Ping
	}

	// --- S3 exports ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Exporter = s3blob.NewExporter(s3blob.NewWriter(s3Client), cfg.S3.ExportPrefix)
		deps.Checks["s3"] = s3Client.Health
	}

	// --- Ephemeris and engine ---
	provider, err := newProvider(cfg.Ephemeris, redisClient, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: ephemeris: %w", err)
	}
	defaults, err := engineDefaults(cfg.Chart)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chart defaults: %w", err)
	}
	houses := chart.DefaultHouseSystems()
	if _, err := houses.Get(defaults.HouseSystem); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chart defaults: %w", err)
	}
	deps.Engine = chart.NewEngine(provider, chart.WithHouseSystems(houses), chart.WithDefaults(defaults))

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Services ---
	deps.Charts = service.NewChartService(deps.Engine, deps.ChartStore, deps.ChartCache, deps.AuditStore, logger)

	var exporter domain.Exporter
	if deps.Exporter != nil {
		exporter = deps.Exporter
	}
	deps.Batches = service.NewBatchService(
		deps.Charts,
		deps.LockManager,
		deps.SignalBus,
		exporter,
		deps.Notifier,
		deps.AuditStore,
		service.BatchConfig{
			Concurrency: cfg.Batch.Concurrency,
			Timeout:     cfg.Batch.Timeout.Duration,
			LockTTL:     cfg.Batch.LockTTL.Duration,
			MaxItems:    cfg.Batch.MaxItems,
		},
		logger,
	)
	// Background batches finish before the clients they use are closed.
	closers = append(closers, deps.Batches.Wait)

	return deps, cleanup, nil
}

// newProvider builds the configured ephemeris, memoised in Redis when the
// cache is on.
func newProvider(cfg config.EphemerisConfig, rc *redis.Client, logger *slog.Logger) (domain.EphemerisProvider, error) {
	var provider domain.EphemerisProvider
	switch strings.ToLower(cfg.Provider) {
	case "", "analytic":
		provider = ephemeris.NewAnalytic()
	case "fixture":
		f, err := ephemeris.LoadFixtureFile(cfg.FixturePath)
		if err != nil {
			return nil, err
		}
		provider = f
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	if cfg.CacheEnabled && rc != nil {
		provider = ephemeris.NewCached(provider, redis.NewEphemerisCache(rc, cfg.CacheTTL.Duration), logger)
	}
	return provider, nil
}

// engineDefaults converts the [chart] section into engine options.
func engineDefaults(cfg config.ChartConfig) (chart.Options, error) {
	opts := chart.Options{
		HouseSystem:             strings.ToLower(cfg.HouseSystem),
		MinorAspects:            cfg.MinorAspects,
		AspectsIncludeAngles:    cfg.AspectAngles,
		IncludeAnglesInElements: cfg.ElementAngles,
		RetrogradeWindow:        cfg.RetrogradeWindow.Duration,
		FixedObliquity:          cfg.FixedObliquity,
	}

	for _, name := range cfg.Bodies {
		b, err := domain.ParseBody(name)
		if err != nil {
			return chart.Options{}, err
		}
		opts.Bodies = append(opts.Bodies, b)
	}

	if len(cfg.Orbs) > 0 {
		opts.Orbs = make(map[domain.AspectType]float64, len(cfg.Orbs))
		for name, orb := range cfg.Orbs {
			t := domain.AspectType(strings.ToLower(strings.TrimSpace(name)))
			if !chart.KnownAspect(t) {
				return chart.Options{}, fmt.Errorf("unknown aspect %q: %w", name, domain.ErrInvalidOptions)
			}
			opts.Orbs[t] = orb
		}
	}

	if err := opts.Validate(); err != nil {
		return chart.Options{}, err
	}
	return opts, nil
}
