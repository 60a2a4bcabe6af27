package main

import (
	"context"
	"fmt"
	"time"

	"autobook/internal/config"
	"autobook/internal/database"
	"autobook/internal/domain"
	"autobook/internal/events"
	"autobook/internal/globish"
	"autobook/internal/logging"
	"autobook/internal/metrics"
	"autobook/internal/models"
	"autobook/internal/notify"
	"autobook/internal/repository"
	"autobook/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app holds what every command needs: configuration, the logger and the
// storage selected by storage.driver.
type app struct {
	cfg    *config.Config
	logger *zerolog.Logger

	db     *database.DB
	redis  *redis.Client
	ignore domain.IgnoreListStore
	flags  domain.FlagStore
	lock   domain.RunLocker
	creds  domain.CredentialStore

	closers []func() error
}

func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if closer != nil {
		a.closers = append(a.closers, closer.Close)
	}

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	log := logging.Component(a.logger, "storage")

	if a.cfg.Database.Path != "" {
		db, err := database.NewDB(a.cfg.Database.Path, log)
		if err != nil {
			return err
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
	}

	switch a.cfg.Storage.Driver {
	case models.StorageDriverMemory:
		a.ignore = repository.NewMemoryIgnoreList()
		a.flags = repository.NewMemoryFlagStore()
		a.lock = repository.NopRunLock{}
	case models.StorageDriverRedis:
		a.redis = repository.NewRedisClient(a.cfg.Redis)
		a.closers = append(a.closers, func() error { return repository.Close(a.redis) })
		if err := repository.Ping(ctx, a.redis); err != nil {
			return fmt.Errorf("redis unavailable: %w", err)
		}
		a.ignore = repository.NewRedisIgnoreList(a.redis, models.RedisIgnoreKey)
		a.flags = repository.NewRedisFlagStore(a.redis, models.RedisCrashKey)
		a.lock = repository.NewFileRunLock(a.cfg.Storage.LockPath)
	case models.StorageDriverSQLite:
		a.ignore = repository.NewSQLiteIgnoreList(a.db)
		a.flags = repository.NewSQLiteFlagStore(a.db)
		a.lock = repository.NewFileRunLock(a.cfg.Storage.LockPath)
	default:
		a.ignore = repository.NewFileIgnoreList(a.cfg.Storage.IgnorePath)
		a.flags = repository.NewFileFlagStore(a.cfg.Storage.CrashPath)
		a.lock = repository.NewFileRunLock(a.cfg.Storage.LockPath)
	}

	if a.cfg.Credentials.EnvFile != "" {
		a.creds = repository.NewEnvFileCredentialStore(a.cfg.Credentials.EnvFile, a.cfg.Credentials.TokenKey, a.cfg.Credentials.Token)
	} else {
		a.creds = repository.NewMemoryCredentialStore(a.cfg.Credentials.Token)
	}

	log.Debug().Str("driver", a.cfg.Storage.Driver).Bool("history", a.db != nil).Msg("Storage ready")
	return nil
}

// notifier builds the configured sinks. A Telegram bot that cannot be
// reached is logged and skipped.
func (a *app) notifier() domain.Notifier {
	var bot domain.TelegramSender
	if token := a.cfg.Notify.Telegram.BotToken; token != "" {
		api, err := notify.NewTelegramBot(token, a.cfg.Logging.Level == "debug")
		if err != nil {
			a.logger.Warn().Err(err).Msg("Telegram unavailable, notifications go to the log only")
		} else {
			bot = api
		}
	}
	return notify.New(a.cfg.Notify, bot, a.logger)
}

// eventBus wires history and metrics subscribers. m may be nil.
func (a *app) eventBus(m *metrics.Metrics) *events.EventBus {
	bus := events.NewEventBus()
	log := logging.Component(a.logger, "events")
	bus.OnError(func(event *events.Event, err error) {
		log.Error().Err(err).Str("event", event.Type).Msg("Event handler failed")
	})
	if a.db != nil {
		events.RecordHistory(bus, a.db, 5*time.Second)
	}
	if m != nil {
		m.Subscribe(bus)
	}
	return bus
}

func (a *app) crashGuard(n domain.Notifier) *service.CrashGuard {
	return service.NewCrashGuard(a.flags, n, logging.Component(a.logger, "crash_guard"))
}

func (a *app) reconciler(n domain.Notifier, bus *events.EventBus) (*service.Reconciler, error) {
	client, err := globish.NewClient(a.cfg.Globish)
	if err != nil {
		return nil, err
	}

	pacer := service.NewPacer(a.cfg.Globish.RequestDelay)
	guard := a.crashGuard(n)
	principal := models.Principal{Username: a.cfg.Credentials.Username, Password: a.cfg.Credentials.Password}
	auth := service.NewAuthManager(client, a.creds, guard, pacer, bus, principal, logging.Component(a.logger, "auth"))

	return service.NewReconciler(service.ReconcilerDeps{
		Guard:                 guard,
		Auth:                  auth,
		Catalog:               client,
		Booking:               client,
		Ignore:                a.ignore,
		Notifier:              n,
		EventBus:              bus,
		Lock:                  a.lock,
		Pacer:                 pacer,
		CrashOnTransportError: a.cfg.Policy.CrashOnTransportError,
	}, logging.Component(a.logger, "reconciler")), nil
}

// pruneHistory keeps the attempts table within the retention window.
func (a *app) pruneHistory(ctx context.Context) {
	if a.db == nil || a.cfg.Database.HistoryDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -a.cfg.Database.HistoryDays)
	removed, err := a.db.PruneAttempts(ctx, cutoff)
	if err != nil {
		a.logger.Warn().Err(err).Msg("History not pruned")
		return
	}
	if removed > 0 {
		a.logger.Info().Int64("removed", removed).Int("days", a.cfg.Database.HistoryDays).Msg("Old attempts pruned")
	}
}

func (a *app) requireHistory() error {
	if a.db == nil {
		return fmt.Errorf("database.path is not configured, no history is kept")
	}
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}
