package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/adws/internal/config"
	"github.com/shaiso/adws/internal/mq"
)

const defaultInterval = 30 * time.Second

// Dispatcher публикует сообщение workflow.dispatch.
type Dispatcher interface {
	PublishDispatch(ctx context.Context, payload mq.DispatchPayload) error
}

// Entry — запись расписания.
type Entry struct {
	Name     string
	Cron     string
	Timezone string
	Payload  mq.DispatchPayload
}

// EntriesFromConfig переводит секцию schedules конфигурации в записи.
func EntriesFromConfig(schedules []config.ScheduleConfig) []Entry {
	entries := make([]Entry, len(schedules))
	for i, sc := range schedules {
		entries[i] = Entry{
			Name:     sc.Name,
			Cron:     sc.Cron,
			Timezone: sc.Timezone,
			Payload: mq.DispatchPayload{
				Command:  sc.Command,
				Workflow: sc.Workflow,
				IssueID:  sc.IssueID,
				Inputs:   sc.Inputs,
				Attempt:  1,
			},
		}
	}
	return entries
}

type entry struct {
	Entry
	schedule cron.Schedule
	nextDue  time.Time
}

// Scheduler публикует наступившие записи расписания.
type Scheduler struct {
	entries    []*entry
	dispatcher Dispatcher
	interval   time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Scheduler.
type Config struct {
	// Entries — записи расписания.
	Entries []Entry

	// Dispatcher — публикация в очередь (обязателен).
	Dispatcher Dispatcher

	// Interval — период Tick в Start (default: 30s).
	Interval time.Duration

	// Now — источник времени (по умолчанию time.Now).
	Now func() time.Time

	// Logger
	Logger *slog.Logger
}

// New разбирает записи и считает первое время запуска каждой.
// Все некорректные записи возвращаются одной ошибкой.
func New(cfg Config) (*Scheduler, error) {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		dispatcher: cfg.Dispatcher,
		interval:   interval,
		now:        now,
		logger:     logger.With("component", "scheduler"),
	}

	var errs []error
	start := now()
	for _, e := range cfg.Entries {
		sched, err := ParseCron(e.Cron, e.Timezone)
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule %s: %w", e.Name, err))
			continue
		}
		e.Payload.Attempt = max(e.Payload.Attempt, 1)
		s.entries = append(s.entries, &entry{
			Entry:    e,
			schedule: sched,
			nextDue:  sched.Next(start),
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// Tick публикует все записи, время которых наступило, и возвращает
// число опубликованных. Ошибка публикации не сдвигает время записи:
// запись повторится на следующем тике.
func (s *Scheduler) Tick(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	published := 0
	for _, e := range s.entries {
		if now.Before(e.nextDue) {
			continue
		}

		if err := s.dispatcher.PublishDispatch(ctx, e.Payload); err != nil {
			s.logger.Warn("failed to publish scheduled dispatch",
				"schedule", e.Name,
				"due", e.nextDue,
				"error", err,
			)
			continue
		}

		published++
		e.nextDue = e.schedule.Next(now)
		s.logger.Info("scheduled dispatch published",
			"schedule", e.Name,
			"command", e.Payload.Command,
			"workflow", e.Payload.Workflow,
			"issue_id", e.Payload.IssueID,
			"next_due", e.nextDue,
		)
	}
	return published
}

// NextDue возвращает ближайшее время запуска по имени записи.
func (s *Scheduler) NextDue() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]time.Time, len(s.entries))
	for _, e := range s.entries {
		result[e.Name] = e.nextDue
	}
	return result
}

// Start запускает Tick с периодом Interval до Stop или отмены ctx.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.logger.Info("starting scheduler", "entries", len(s.entries), "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop останавливает цикл и ждёт текущий Tick.
func (s *Scheduler) Stop() {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}
