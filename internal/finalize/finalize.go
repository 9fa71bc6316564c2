package finalize

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/adws/internal/domain"
	"github.com/shaiso/adws/internal/telemetry"
	"github.com/shaiso/adws/internal/tracker"
)

// Action — результат finalize.
type Action string

const (
	ActionSkipped       Action = "skipped"
	ActionClosed        Action = "closed"
	ActionCloseFailed   Action = "close_failed"
	ActionTaggedFailure Action = "tagged_failure"
	ActionTagFailed     Action = "tag_failed"
)

// DefaultCloseReason — причина закрытия задачи по умолчанию.
const DefaultCloseReason = "Completed by ADWS"

// Finalizer применяет результат workflow к задаче трекера.
type Finalizer struct {
	tracker     tracker.Tracker
	now         func() time.Time
	closeReason string
	metrics     *telemetry.Metrics
	logger      *slog.Logger
}

// Config — конфигурация Finalizer.
type Config struct {
	// Tracker — трекер задач (обязателен).
	Tracker tracker.Tracker

	// Now — источник времени для last_failure (по умолчанию time.Now).
	Now func() time.Time

	// CloseReason — причина закрытия (default: "Completed by ADWS").
	CloseReason string

	// Metrics — метрики (опционально).
	Metrics *telemetry.Metrics

	// Logger
	Logger *slog.Logger
}

// New создаёт Finalizer.
func New(cfg Config) *Finalizer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	reason := cfg.CloseReason
	if reason == "" {
		reason = DefaultCloseReason
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Finalizer{
		tracker:     cfg.Tracker,
		now:         now,
		closeReason: reason,
		metrics:     cfg.Metrics,
		logger:      logger,
	}
}

// OnSuccess закрывает задачу.
func (f *Finalizer) OnSuccess(ctx context.Context, issueID string) Action {
	if issueID == "" || f.tracker == nil {
		return f.done(ActionSkipped)
	}

	logger := telemetry.WithIssue(f.logger, issueID)
	if err := f.tracker.Close(ctx, issueID, f.closeReason); err != nil {
		logger.Warn("failed to close issue", "error", err)
		return f.done(ActionCloseFailed)
	}

	logger.Info("issue closed")
	return f.done(ActionClosed)
}

// OnFailure записывает метаданные ошибки в notes задачи.
func (f *Finalizer) OnFailure(ctx context.Context, issueID string, perr *domain.PipelineError, attempt int) Action {
	if issueID == "" || f.tracker == nil {
		return f.done(ActionSkipped)
	}

	meta := NewFailureMetadata(perr, attempt, f.now())
	logger := telemetry.WithIssue(f.logger, issueID)

	if err := f.tracker.UpdateNotes(ctx, issueID, meta.Format()); err != nil {
		logger.Warn("failed to tag issue",
			"error", err,
			"error_class", meta.ErrorClass,
			"step", meta.Step,
		)
		return f.done(ActionTagFailed)
	}

	logger.Info("issue tagged with failure",
		"attempt", meta.Attempt,
		"error_class", meta.ErrorClass,
		"step", meta.Step,
	)
	return f.done(ActionTaggedFailure)
}

func (f *Finalizer) done(action Action) Action {
	f.metrics.FinalizeAction(string(action))
	return action
}
