package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shaiso/adws/internal/commands"
	"github.com/shaiso/adws/internal/finalize"
	"github.com/shaiso/adws/internal/mq"
	"github.com/shaiso/adws/internal/telemetry"
	"github.com/shaiso/adws/internal/tracker"
	"github.com/shaiso/adws/internal/workflows"
)

const defaultPrefetch = 1

// CommandRunner выполняет запрос на запуск workflow.
type CommandRunner interface {
	Run(ctx context.Context, req commands.Request) (*commands.Result, error)
}

// Worker потребляет очередь workflow.dispatch.
//
// Один экземпляр обрабатывает сообщения последовательно (prefetch = 1
// по умолчанию): шаги workflow меняют рабочую директорию, параллельный
// запуск в одной директории недопустим. Масштабирование — несколько
// процессов в разных checkout'ах.
type Worker struct {
	conn     *mq.Connection
	runner   CommandRunner
	tracker  tracker.Tracker
	metrics  *telemetry.Metrics
	prefetch int

	consumer *mq.Consumer

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Conn — соединение с RabbitMQ.
	Conn *mq.Connection

	// Runner — командный слой (обязателен).
	Runner CommandRunner

	// Tracker — трекер задач для проверки notes (опционально).
	Tracker tracker.Tracker

	// Metrics — счётчики (опционально).
	Metrics *telemetry.Metrics

	// Prefetch — сколько сообщений брать до ack (default: 1).
	Prefetch int

	// Logger
	Logger *slog.Logger
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		conn:     cfg.Conn,
		runner:   cfg.Runner,
		tracker:  cfg.Tracker,
		metrics:  cfg.Metrics,
		prefetch: prefetch,
		logger:   logger.With("component", "dispatch"),
	}
}

// Start запускает consumer очереди workflow.dispatch.
func (w *Worker) Start(ctx context.Context) error {
	if w.conn == nil {
		return mq.ErrNoChannel
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting dispatch worker", "prefetch", w.prefetch)

	w.consumer = mq.NewConsumer(w.conn, mq.ConsumerConfig{
		Queue:    mq.QueueWorkflowDispatch,
		Handler:  w.Handle,
		Prefetch: w.prefetch,
		Logger:   w.logger,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("dispatch consumer error", "error", err)
		}
	}()

	w.logger.Info("dispatch worker started")
	return nil
}

// Stop останавливает Worker и ждёт текущее сообщение.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping dispatch worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()

	w.logger.Info("dispatch worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// Handle обрабатывает одно сообщение workflow.dispatch.
//
// nil — сообщение обработано (в том числе пропущено guard'ом или
// завершилось неудачей workflow, которая уже записана в задачу).
// ErrDiscard — сообщение битое или ссылается на несуществующий workflow.
// Прочие ошибки — инфраструктурные, сообщение вернётся в очередь.
func (w *Worker) Handle(ctx context.Context, delivery *mq.Delivery) error {
	if delivery.Message.Type != mq.MessageTypeWorkflowDispatch {
		return fmt.Errorf("%w: %w: unexpected type %q", mq.ErrDiscard, ErrInvalidPayload, delivery.Message.Type)
	}

	payload, err := mq.ParsePayload[mq.DispatchPayload](&delivery.Message)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", mq.ErrDiscard, ErrInvalidPayload, err)
	}
	if payload.Command == "" && payload.Workflow == "" {
		return fmt.Errorf("%w: %w: command or workflow is required", mq.ErrDiscard, ErrInvalidPayload)
	}

	logger := telemetry.WithIssue(w.logger, payload.IssueID).With(
		"command", payload.Command,
		"workflow", payload.Workflow,
		"attempt", payload.Attempt,
	)

	skip, err := w.guard(ctx, payload.IssueID)
	if err != nil {
		if errors.Is(err, tracker.ErrIssueNotFound) {
			return fmt.Errorf("%w: %w", mq.ErrDiscard, err)
		}
		return fmt.Errorf("dispatch guard: %w", err)
	}
	if skip != "" {
		w.metrics.DispatchSkip()
		logger.Info("dispatch skipped", "reason", skip)
		return nil
	}

	res, err := w.runner.Run(ctx, commands.Request{
		Command:  payload.Command,
		Workflow: payload.Workflow,
		IssueID:  payload.IssueID,
		Inputs:   payload.Inputs,
		Attempt:  payload.Attempt,
	})
	if err != nil {
		if isPermanent(err) {
			return fmt.Errorf("%w: %w", mq.ErrDiscard, err)
		}
		return fmt.Errorf("run: %w", err)
	}

	if res.Success {
		logger.Info("workflow succeeded",
			"run_id", res.RunID,
			"finalize_action", res.FinalizeAction,
			"duration", res.Duration,
		)
	} else {
		logger.Warn("workflow failed",
			"run_id", res.RunID,
			"finalize_action", res.FinalizeAction,
			"error", res.Error,
		)
	}
	return nil
}

// guard возвращает причину пропуска или "" если задачу можно запускать.
func (w *Worker) guard(ctx context.Context, issueID string) (string, error) {
	if issueID == "" || w.tracker == nil {
		return "", nil
	}

	issue, err := w.tracker.Show(ctx, issueID)
	if err != nil {
		return "", err
	}
	if issue.IsClosed() {
		return "issue is closed", nil
	}
	if skip, reason := finalize.ShouldSkipDispatch(issue.Notes); skip {
		return reason, nil
	}
	return "", nil
}

// isPermanent — повтор сообщения не изменит результат.
func isPermanent(err error) bool {
	return errors.Is(err, workflows.ErrWorkflowNotFound) ||
		errors.Is(err, workflows.ErrNotDispatchable) ||
		errors.Is(err, workflows.ErrUnknownCommand) ||
		errors.Is(err, commands.ErrNoWorkflow)
}
