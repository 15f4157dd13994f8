package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"flightdesk/api/routes"
	"flightdesk/internal/bookings"
	"flightdesk/internal/flights"
	"flightdesk/internal/holds"
	"flightdesk/internal/notifications"
	"flightdesk/internal/reservations"
	"flightdesk/internal/shared/config"
	"flightdesk/internal/shared/database"
	"flightdesk/pkg/cache"
	"flightdesk/pkg/logger"
	"flightdesk/pkg/ratelimit"
)

// application owns every long-lived component of the server
type application struct {
	deps       routes.Dependencies
	dispatcher *notifications.Dispatcher
}

func buildApplication(cfg *config.Config, db *database.DB, log *logger.Logger) (*application, error) {
	catalog, err := flights.LoadCatalog(cfg.Catalog.DataPath)
	if err != nil {
		return nil, err
	}
	log.Info("Flight catalog loaded", slog.String("source", catalogSource(cfg)))

	store, err := buildHoldStore(cfg, db, catalog, log)
	if err != nil {
		return nil, err
	}

	ledger, err := buildLedger(cfg, db, log)
	if err != nil {
		return nil, err
	}

	publisher, err := buildPublisher(cfg, log)
	if err != nil {
		return nil, err
	}
	dispatcher := notifications.NewDispatcher(publisher, cfg.Kafka.QueueSize, log)

	manager := reservations.NewManager(store, catalog, ledger, reservations.Config{
		DefaultHoldTTL:   cfg.Reservation.DefaultHoldTTL,
		MinHoldTTL:       cfg.Reservation.MinHoldTTL,
		MaxHoldTTL:       cfg.Reservation.MaxHoldTTL,
		CodeLength:       cfg.Reservation.ConfirmationCodeLength,
		ReclaimBatchSize: cfg.Reservation.ReclaimBatchSize,
	},
		reservations.WithEvents(dispatcher),
		reservations.WithLogger(log),
	)

	jobs := reservations.NewJobProcessor(manager, &reservations.JobConfig{
		ReclaimInterval: cfg.Reservation.ReclaimInterval,
		HoldRetention:   cfg.Reservation.HoldRetention,
	}, log)

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db != nil && db.Redis != nil {
		rateLimiter = ratelimit.NewRateLimiter(db.Redis, &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			PublicRequests:  cfg.RateLimit.PublicRequests,
			HoldRequests:    cfg.RateLimit.HoldRequests,
			BookingRequests: cfg.RateLimit.BookingRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		})
		log.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("hold_requests", cfg.RateLimit.HoldRequests),
		)
	} else {
		log.Info("Rate limiting disabled")
	}

	return &application{
		deps: routes.Dependencies{
			Catalog:      catalog,
			Store:        store,
			Ledger:       ledger,
			Reservations: manager,
			RateLimiter:  rateLimiter,
			Jobs:         jobs,
		},
		dispatcher: dispatcher,
	}, nil
}

func catalogSource(cfg *config.Config) string {
	if cfg.Catalog.DataPath == "" {
		return "embedded"
	}
	return cfg.Catalog.DataPath
}

func buildHoldStore(cfg *config.Config, db *database.DB, catalog flights.Catalog, log *logger.Logger) (holds.Store, error) {
	available := reservations.CatalogAvailability(catalog)

	switch cfg.Reservation.StoreBackend {
	case config.BackendRedis:
		if db == nil || db.Redis == nil {
			return nil, errors.New("redis hold store needs a redis connection")
		}
		store := holds.NewRedisStore(db.Redis, available, cfg.Reservation.ReclaimBatchSize)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.PreloadScripts(ctx); err != nil {
			// scripts are loaded on first use anyway
			log.Warn("Failed to preload hold store scripts", slog.Any("error", err))
		} else {
			log.Info("Hold store scripts preloaded")
		}
		return store, nil
	case config.BackendMemory:
		return holds.NewMemoryStore(available, cfg.Reservation.StoreShards), nil
	default:
		return nil, fmt.Errorf("unknown hold store backend %q", cfg.Reservation.StoreBackend)
	}
}

func buildLedger(cfg *config.Config, db *database.DB, log *logger.Logger) (bookings.Ledger, error) {
	var ledger bookings.Ledger
	switch cfg.Reservation.LedgerBackend {
	case config.BackendPostgres:
		if db == nil || db.PostgreSQL == nil {
			return nil, errors.New("postgres ledger needs a database connection")
		}
		ledger = bookings.NewRepository(db.PostgreSQL)
	case config.BackendMemory:
		ledger = bookings.NewMemoryLedger()
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Reservation.LedgerBackend)
	}

	if db != nil && db.Redis != nil && cfg.Redis.BookingCacheTTL > 0 {
		log.Info("Booking lookups cached in Redis", slog.Duration("ttl", cfg.Redis.BookingCacheTTL))
		ledger = bookings.NewCachedLedger(ledger, cache.NewService(db.Redis), cfg.Redis.BookingCacheTTL)
	}
	return ledger, nil
}

func buildPublisher(cfg *config.Config, log *logger.Logger) (notifications.Publisher, error) {
	if !cfg.Kafka.Enabled {
		log.Info("Kafka disabled, reservation events are logged only")
		return notifications.NewLogPublisher(log), nil
	}

	kcfg := notifications.DefaultKafkaProducerConfig()
	kcfg.Brokers = cfg.Kafka.Brokers
	kcfg.Topic = cfg.Kafka.Topic
	kcfg.ClientID = cfg.Kafka.ClientID
	kcfg.RetryMax = cfg.Kafka.MaxRetries

	publisher, err := notifications.NewKafkaPublisher(kcfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	log.Info("Kafka publisher ready", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("topic", cfg.Kafka.Topic))
	return publisher, nil
}

// start launches the background workers. They stop when ctx is cancelled or
// shutdown is called.
func (a *application) start(ctx context.Context) {
	a.dispatcher.Start()
	a.deps.Jobs.Start(ctx)
}

func (a *application) shutdown() error {
	a.deps.Jobs.Stop()
	return a.dispatcher.Close()
}
