package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ParseLevel разбирает уровень в нотации slog (DEBUG, info, WARN+2...).
// Пустое или нераспознанное значение — INFO.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LogOptions — параметры логгера из секции logging.
type LogOptions struct {
	// Level — уровень (по умолчанию INFO).
	Level string

	// Format — "json" (по умолчанию) или "text".
	Format string

	// Output — куда писать (по умолчанию os.Stdout).
	Output io.Writer
}

// SetupLoggerWith создаёт логгер, делает его slog.Default и возвращает.
// На DEBUG в записи добавляется source.
func SetupLoggerWith(o LogOptions) *slog.Logger {
	level := ParseLevel(o.Level)

	out := o.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level <= slog.LevelDebug,
		ReplaceAttr: durationAsString,
	}

	var handler slog.Handler
	if strings.EqualFold(o.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// durationAsString пишет time.Duration как "1.5s" вместо наносекунд.
func durationAsString(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindDuration {
		return slog.String(a.Key, a.Value.Duration().Round(time.Millisecond).String())
	}
	return a
}

type loggerKey struct{}

// WithLogger кладёт логгер запроса в ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext — логгер из ctx или slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// --- Декораторы полей ---

func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

func WithWorkflow(logger *slog.Logger, workflow string) *slog.Logger {
	return logger.With("workflow", workflow)
}

func WithStep(logger *slog.Logger, step string) *slog.Logger {
	return logger.With("step", step)
}

func WithIssue(logger *slog.Logger, issueID string) *slog.Logger {
	return logger.With("issue_id", issueID)
}
