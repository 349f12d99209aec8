// Package app wires configuration, storage, cache, event bus and the
// application handlers into one object shared by the worker and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/studypet/studypet-hub/config"
	"github.com/studypet/studypet-hub/internal/application/command"
	"github.com/studypet/studypet-hub/internal/application/query"
	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/infrastructure/messaging"
	"github.com/studypet/studypet-hub/internal/infrastructure/persistence/memory"
	"github.com/studypet/studypet-hub/internal/infrastructure/persistence/postgres"
	"github.com/studypet/studypet-hub/internal/infrastructure/persistence/redis"
	"github.com/studypet/studypet-hub/internal/infrastructure/persistence/sqlite"
	"github.com/studypet/studypet-hub/internal/interface/http/handlers"
	"github.com/studypet/studypet-hub/pkg/circuitbreaker"
	"github.com/studypet/studypet-hub/pkg/logger"
	"github.com/studypet/studypet-hub/pkg/retry"
	"github.com/studypet/studypet-hub/pkg/timeutil"
)

// Commands groups the write-side handlers.
type Commands struct {
	CreateProgression *command.CreateProgressionHandler
	DeleteProgression *command.DeleteProgressionHandler
	StartSession      *command.StartSessionHandler
	FinishSession     *command.FinishSessionHandler
	CompleteSession   *command.CompleteSessionHandler
	AdjustPet         *command.AdjustPetHandler
	ApplyDecay        *command.ApplyDecayHandler
}

// Queries groups the read-side handlers.
type Queries struct {
	GetProgression *query.GetProgressionHandler
	ListSessions   *query.ListSessionsHandler
}

// App holds every long-lived component.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Clock  timeutil.Clock
	Engine *progression.Engine

	Store    progression.Store
	Sessions progression.SessionStore
	Bus      *messaging.InMemoryEventBus
	Health   *handlers.CompositeHealthChecker

	// Postgres is set only for the postgres driver.
	Postgres *postgres.Connection

	// CacheBreaker is nil when Redis is disabled or unreachable.
	CacheBreaker *circuitbreaker.CircuitBreaker

	Commands Commands
	Queries  Queries

	migrate func(ctx context.Context) (int, error)
	closers []func()
}

// Options tweak construction for a particular executable.
type Options struct {
	// Clock defaults to the system clock.
	Clock timeutil.Clock

	// AsyncEvents dispatches events on a worker pool.
	AsyncEvents bool

	// SkipMigrations disables DB_AUTO_MIGRATE for this process.
	SkipMigrations bool
}

// New builds the application. The caller must call Close.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}

	a := &App{
		Config: cfg,
		Logger: log,
		Clock:  opts.Clock,
		Health: handlers.NewCompositeHealthChecker(cfg.App.Version),
	}

	economy, err := cfg.Economy.Build()
	if err != nil {
		return nil, fmt.Errorf("economy: %w", err)
	}
	a.Engine, err = progression.NewEngine(economy, cfg.App.Location())
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Storage
	// ─────────────────────────────────────────────────────────────────────────
	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Database.AutoMigrate && !opts.SkipMigrations {
		if _, err := a.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Redis (optional): snapshot cache, distributed lock, event fan-out
	// ─────────────────────────────────────────────────────────────────────────
	var (
		locker command.UserLocker
		cache  progression.Cache
	)

	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.AsyncMode = opts.AsyncEvents
	busConfig.Logger = log

	if cfg.Redis.Enabled {
		rc, err := redis.NewCache(redisConfig(cfg.Redis))
		if err != nil {
			log.Warn("failed to connect to Redis, running without cache and distributed lock", "error", err)
		} else {
			a.closers = append(a.closers, func() { _ = rc.Close() })
			a.Health.AddOptionalCheck("redis", handlers.NewPingCheck(rc))

			locker = redis.NewLocker(rc, redis.LockConfig{
				TTL:           cfg.Lock.TTL,
				Wait:          cfg.Lock.Wait,
				RetryInterval: cfg.Lock.RetryInterval,
			}, log)
			a.CacheBreaker = circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}, circuitbreaker.WithClock(a.Clock.Now))
			cache = redis.NewProgressionCache(rc, cfg.Redis.CacheTTL).WithBreaker(a.CacheBreaker)
			a.Health.AddOptionalCheck("cache_breaker", handlers.NewBreakerCheck(func() bool {
				return a.CacheBreaker.State() == circuitbreaker.StateOpen
			}))
			busConfig.Remotes = append(busConfig.Remotes, redis.NewEventPublisher(rc))

			log.Info("Redis connection established", "addr", redisConfig(cfg.Redis).Addr())
		}
	}

	a.Bus = messaging.NewInMemoryEventBus(busConfig)
	a.closers = append(a.closers, func() { _ = a.Bus.Close() })
	if err := a.Bus.SubscribeAll(messaging.LogEvents(log)); err != nil {
		a.Close()
		return nil, fmt.Errorf("subscribe event log: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Application handlers
	// ─────────────────────────────────────────────────────────────────────────
	deps := command.Dependencies{
		Store:     a.Store,
		Sessions:  a.Sessions,
		Engine:    a.Engine,
		Locker:    locker,
		Cache:     cache,
		Publisher: a.Bus,
		Clock:     a.Clock,
		Logger:    log,
	}

	complete := command.NewCompleteSessionHandler(deps)
	decay := command.NewApplyDecayHandler(deps)

	a.Commands = Commands{
		CreateProgression: command.NewCreateProgressionHandler(deps),
		DeleteProgression: command.NewDeleteProgressionHandler(deps),
		StartSession:      command.NewStartSessionHandler(deps),
		FinishSession:     command.NewFinishSessionHandler(deps, complete),
		CompleteSession:   complete,
		AdjustPet:         command.NewAdjustPetHandler(deps),
		ApplyDecay:        decay,
	}
	a.Queries = Queries{
		GetProgression: query.NewGetProgressionHandler(a.Engine, decay, cache, a.Clock, log),
		ListSessions:   query.NewListSessionsHandler(a.Sessions),
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config.Database

	switch cfg.Driver {
	case config.DriverPostgres:
		pgCfg := postgres.Config{
			URL:               cfg.URL,
			MaxConns:          int32(cfg.MaxConns),
			MinConns:          int32(cfg.MinConns),
			MaxConnLifetime:   cfg.ConnMaxLifetime,
			MaxConnIdleTime:   cfg.ConnMaxIdleTime,
			HealthCheckPeriod: time.Minute,
		}
		if _, err := pgCfg.PoolConfig(); err != nil {
			return fmt.Errorf("invalid database URL: %w", err)
		}

		var conn *postgres.Connection
		retrier := retry.ConnectRetrier(cfg.ConnectAttempts, func(attempt int, err error, delay time.Duration) {
			a.Logger.Warn("database not reachable, retrying", "attempt", attempt, "delay", delay, "error", err)
		})
		err := retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			conn, err = postgres.NewConnection(ctx, pgCfg)
			if postgres.IsFatalConnectError(err) {
				return retry.Permanent(err)
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.Postgres = conn
		a.closers = append(a.closers, conn.Close)
		a.Health.AddCheck("database", handlers.NewPingCheck(conn))

		migrator := postgres.NewMigrator(conn)
		a.migrate = migrator.Migrate
		a.Store = postgres.NewProgressionRepository(conn)
		a.Sessions = postgres.NewSessionRepository(conn)

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.Health.AddCheck("database", handlers.NewPingCheck(db))

		a.migrate = db.Migrate
		a.Store = sqlite.NewProgressionRepository(db)
		a.Sessions = sqlite.NewSessionRepository(db)

	case config.DriverMemory:
		store := memory.NewStore()
		a.migrate = func(context.Context) (int, error) { return 0, nil }
		a.Store = store
		a.Sessions = store

	default:
		return fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	a.Logger.Info("storage ready", "driver", cfg.Driver)
	return nil
}

// Migrate applies pending schema migrations and returns how many ran.
func (a *App) Migrate(ctx context.Context) (int, error) {
	n, err := a.migrate(ctx)
	if err != nil {
		return n, fmt.Errorf("failed to run migrations: %w", err)
	}
	a.Logger.Info("database schema is up to date", "applied", n)
	return n, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func redisConfig(c config.RedisConfig) redis.Config {
	rc := redis.DefaultConfig()
	rc.URL = c.URL
	rc.Host = c.Host
	rc.Port = c.Port
	rc.Password = c.Password
	rc.DB = c.DB
	rc.PoolSize = c.PoolSize
	rc.MinIdleConns = c.MinIdleConns
	rc.DialTimeout = c.DialTimeout
	rc.ReadTimeout = c.ReadTimeout
	rc.WriteTimeout = c.WriteTimeout
	return rc
}

// SetupLogger configures structured logging: JSON in production or when
// LOG_FORMAT=json, text otherwise, always on stderr. It also becomes the
// slog default.
func SetupLogger(cfg *config.Config) *slog.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Log.Level)
	opts.Format = logger.ParseFormat(cfg.Log.Format)
	opts.App = cfg.App.Name
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	if cfg.IsProduction() {
		opts.Format = logger.FormatJSON
	}

	log := logger.New(opts)
	slog.SetDefault(log)
	return log
}
