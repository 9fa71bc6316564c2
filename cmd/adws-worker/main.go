// ADWS Worker — выполняет workflow из очереди workflow.dispatch.
//
// Worker:
//   - Получает запросы на запуск из RabbitMQ
//   - Проверяет notes задачи (ADWS_FAILED, needs_human)
//   - Выполняет workflow и финализирует задачу в трекере
//   - Пишет историю в PostgreSQL и публикует runs.finished
//   - Публикует запуски по расписанию из секции schedules
//   - Отдаёт /healthz, /metrics и read-only API истории
//
// Один процесс обрабатывает одну задачу за раз в своём checkout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/adws/internal/api"
	"github.com/shaiso/adws/internal/app"
	"github.com/shaiso/adws/internal/config"
	"github.com/shaiso/adws/internal/dispatch"
	"github.com/shaiso/adws/internal/mq"
	"github.com/shaiso/adws/internal/scheduler"
	"github.com/shaiso/adws/internal/telemetry"
)

var startTime = time.Now()

func main() {
	cfgFile := flag.String("config", "", "Config file (default ./adws.yaml or $XDG_CONFIG_HOME/adws/config.yaml)")
	flag.Parse()

	v, err := config.New(*cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	cfg, err := config.Load(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLoggerWith(telemetry.LogOptions{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info("starting adws-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	// RabbitMQ
	var mqConn *mq.Connection
	var publisher *mq.Publisher
	if cfg.RabbitMQ.URL == "" {
		logger.Warn("rabbitmq.url is empty, serving API only")
	} else {
		mqConn, err = mq.NewConnection(mq.ConnectionConfig{URL: cfg.RabbitMQ.URL, Logger: logger})
		if err != nil {
			logger.Error("failed to connect to RabbitMQ", "url", mq.RedactURL(cfg.RabbitMQ.URL), "error", err)
			os.Exit(1)
		}
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Error("failed to setup topology", "error", err)
			os.Exit(1)
		}
		publisher = mq.NewPublisher(mqConn, logger)
	}

	opts := app.Options{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
	}
	if publisher != nil {
		opts.Publisher = publisher
	}

	a, err := app.New(ctx, opts)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Dispatch worker
	var worker *dispatch.Worker
	if mqConn != nil {
		worker = dispatch.New(dispatch.Config{
			Conn:     mqConn,
			Runner:   a.Runner,
			Tracker:  a.Tracker,
			Metrics:  metrics,
			Prefetch: cfg.RabbitMQ.Prefetch,
			Logger:   logger,
		})
		if err := worker.Start(ctx); err != nil {
			logger.Error("failed to start dispatch worker", "error", err)
			os.Exit(1)
		}
	}

	// Scheduler
	var sched *scheduler.Scheduler
	switch {
	case len(cfg.Schedules) == 0:
	case publisher == nil:
		logger.Warn("schedules configured but rabbitmq.url is empty, scheduler disabled",
			"schedules", len(cfg.Schedules))
	default:
		sched, err = scheduler.New(scheduler.Config{
			Entries:    scheduler.EntriesFromConfig(cfg.Schedules),
			Dispatcher: publisher,
			Logger:     logger,
		})
		if err != nil {
			logger.Error("failed to create scheduler", "error", err)
			os.Exit(1)
		}
		sched.Start(ctx)
	}

	// HTTP: /healthz, /metrics, API
	apiCfg := api.Config{
		Workflows: a.Loader,
		Logger:    logger,
	}
	if a.Store != nil {
		apiCfg.Runs = a.Store.Runs
		apiCfg.Steps = a.Store.Steps
	}
	if publisher != nil {
		apiCfg.Dispatcher = publisher
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if mqConn != nil && !mqConn.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "rabbitmq disconnected")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", telemetry.Handler(prometheus.DefaultGatherer))
	api.NewHandler(apiCfg).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.API.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	if sched != nil {
		sched.Stop()
	}
	if worker != nil {
		worker.Stop()
	}
	logger.Info("adws-worker stopped")
}
