// Package app собирает зависимости ADWS из конфигурации.
//
// Общая сборка для cmd/adws и cmd/adws-worker: реестр функций шагов,
// executor, загрузчик workflow, трекер, finalize и командный слой.
// История run (PostgreSQL) подключается, только если задан database.url.
package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/adws/internal/commands"
	"github.com/shaiso/adws/internal/config"
	"github.com/shaiso/adws/internal/executor"
	"github.com/shaiso/adws/internal/finalize"
	"github.com/shaiso/adws/internal/proc"
	"github.com/shaiso/adws/internal/repo"
	"github.com/shaiso/adws/internal/steps"
	"github.com/shaiso/adws/internal/telemetry"
	"github.com/shaiso/adws/internal/tracker"
	"github.com/shaiso/adws/internal/workflows"
)

// App — собранные зависимости.
type App struct {
	Config    *config.Config
	Loader    *workflows.Loader
	Tracker   tracker.Tracker
	Registry  *steps.Registry
	Executor  *executor.Executor
	Finalizer *finalize.Finalizer
	Runner    *commands.Runner

	// Store — история run; nil, если база не настроена или NoHistory.
	Store *repo.Store

	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Options — параметры сборки.
type Options struct {
	// Config — конфигурация (обязательна).
	Config *config.Config

	// Logger
	Logger *slog.Logger

	// Metrics — метрики (опционально).
	Metrics *telemetry.Metrics

	// ProcRunner — запуск процессов (по умолчанию proc.ExecRunner).
	ProcRunner proc.Runner

	// Tracker — подменяет трекер из конфигурации (dry-run, тесты).
	Tracker tracker.Tracker

	// NoHistory — не подключаться к базе даже при заданном database.url.
	NoHistory bool

	// Publisher — события о завершении run (опционально).
	Publisher commands.EventPublisher
}

// New собирает App. Закрывать через Close.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runner := opts.ProcRunner
	if runner == nil {
		runner = proc.NewExecRunner()
	}

	a := &App{
		Config: cfg,
		logger: logger,
	}

	a.Tracker = opts.Tracker
	if a.Tracker == nil {
		a.Tracker = tracker.NewCLI(tracker.CLIConfig{
			Runner:  runner,
			Binary:  cfg.Tracker.Binary,
			Dir:     firstNonEmpty(cfg.Tracker.Dir, cfg.Executor.Dir),
			Timeout: cfg.Tracker.Timeout(),
		})
	}

	a.Registry = steps.DefaultRegistry(steps.Config{
		Runner: runner,
		Shell:  cfg.Executor.Shell,
		Dir:    cfg.Executor.Dir,
		Agent: steps.AgentConfig{
			Binary:  cfg.Agent.Binary,
			Model:   cfg.Agent.Model,
			Dir:     cfg.Executor.Dir,
			Timeout: cfg.Agent.Timeout(),
		},
	})

	a.Loader = workflows.NewLoader(workflows.Config{
		Dir:    cfg.Workflows.Dir,
		Logger: logger,
	})

	a.Executor = executor.New(executor.Config{
		Registry: a.Registry,
		Metrics:  opts.Metrics,
		Logger:   logger,
	})

	a.Finalizer = finalize.New(finalize.Config{
		Tracker:     a.Tracker,
		CloseReason: cfg.Tracker.CloseReason,
		Metrics:     opts.Metrics,
		Logger:      logger,
	})

	var recorder commands.RunRecorder
	if cfg.Database.URL != "" && !opts.NoHistory {
		pool, err := repo.NewPool(ctx, repo.PoolConfig{
			URL:      cfg.Database.URL,
			MaxConns: int32(cfg.Database.MaxConns),
		})
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.Store = repo.NewStore(pool)
		recorder = a.Store
		logger.Info("connected to database")
	}

	a.Runner = commands.NewRunner(commands.Config{
		Loader:    a.Loader,
		Executor:  a.Executor,
		Finalizer: a.Finalizer,
		Recorder:  recorder,
		Publisher: opts.Publisher,
		Logger:    logger,
	})

	return a, nil
}

// Close освобождает ресурсы (пул соединений с базой).
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
