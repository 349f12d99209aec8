// Package main - точка входа для фонового процесса (Worker) Study Pet.
//
// Worker отвечает за:
// - ежедневный проход затухания энергии и сброса серий (decay sweep)
// - публикацию доменных событий в Redis для других инстансов
// - health/ready/live эндпоинты для оркестратора
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/studypet/studypet-hub/config"
	"github.com/studypet/studypet-hub/internal/app"
	"github.com/studypet/studypet-hub/internal/infrastructure/scheduler"
	"github.com/studypet/studypet-hub/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/studypet/studypet-hub/internal/interface/http"
	"github.com/studypet/studypet-hub/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Корневой контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := app.SetupLogger(cfg)
	log.Info("starting Study Pet worker",
		"env", cfg.App.Environment,
		"debug", cfg.App.Debug,
		"timezone", cfg.App.Location().String(),
		"driver", cfg.Database.Driver,
		"economy", cfg.Economy.Preset,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ, REDIS, EVENT BUS, ОБРАБОТЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, log, app.Options{AsyncEvents: true})
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing resources...")
		application.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.Logger = log
	schedCfg.Clock = application.Clock
	schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
	schedCfg.RunOnStartup = cfg.Scheduler.RunOnStartup
	sched := scheduler.NewScheduler(schedCfg)

	sweep := jobs.NewDecaySweepJob(
		application.Store,
		application.Commands.ApplyDecay,
		application.Clock,
		log,
		jobs.DecaySweepConfig{
			Concurrency: cfg.Scheduler.Concurrency,
			BatchSize:   cfg.Scheduler.BatchSize,
			MaxBatches:  cfg.Scheduler.MaxBatches,
			Location:    cfg.App.Location(),
		},
	)

	var schedule scheduler.Schedule = scheduler.NewDailySchedule(cfg.Scheduler.SweepOffset, cfg.App.Location())
	if cfg.Scheduler.SweepInterval > 0 {
		schedule = scheduler.NewIntervalSchedule(cfg.Scheduler.SweepInterval)
	}
	if err := sched.Register(sweep, schedule); err != nil {
		return fmt.Errorf("failed to register decay sweep: %w", err)
	}

	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		application.Health.AddCheck("scheduler", handlers.NewSchedulerCheck(sched.IsRunning))
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	} else {
		log.Warn("scheduler disabled, pets decay only when their owners are active")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HEALTH SERVER
	// ─────────────────────────────────────────────────────────────────────────
	var serverErr <-chan error
	if cfg.HTTP.Enabled {
		httpCfg := httpserver.DefaultConfig()
		httpCfg.Host = cfg.HTTP.Host
		httpCfg.Port = cfg.HTTP.Port
		httpCfg.RateLimit = cfg.HTTP.RateLimit
		httpCfg.RateBurst = cfg.HTTP.RateBurst

		server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
			HealthChecker: application.Health,
			Version:       cfg.App.Version,
			Logger:        log,
			Metrics: func() map[string]interface{} {
				m := map[string]interface{}{
					"scheduler": sched.Metrics().Snapshot(),
					"event_bus": application.Bus.Metrics().Snapshot(),
				}
				if stats := sweep.LastStats(); stats != nil {
					m["decay_sweep"] = stats
				}
				if application.Postgres != nil {
					m["database_pool"] = application.Postgres.Stats()
				}
				if application.CacheBreaker != nil {
					m["cache_breaker"] = application.CacheBreaker.Snapshot()
				}
				return m
			},
		})
		serverErr = server.StartAsync()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown failed", "error", err)
			}
		}()
	}

	log.Info("Study Pet worker is running", "jobs", len(sched.ListJobs()))

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-serverErr:
		if ok && err != nil {
			return err
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	return nil
}
