package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/adws/internal/domain"
	"github.com/shaiso/adws/internal/mq"
	"github.com/shaiso/adws/internal/repo"
)

// RunReader — чтение истории run.
type RunReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
}

// StepReader — чтение шагов run.
type StepReader interface {
	ListByRunID(ctx context.Context, runID uuid.UUID) ([]domain.StepRun, error)
}

// WorkflowCatalog — доступные workflow.
type WorkflowCatalog interface {
	List() ([]string, error)
	Load(name string) (*domain.Workflow, error)
}

// Dispatcher ставит команду в очередь.
type Dispatcher interface {
	PublishDispatch(ctx context.Context, payload mq.DispatchPayload) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	runs       RunReader
	steps      StepReader
	workflows  WorkflowCatalog
	dispatcher Dispatcher
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
//
// Runs и Steps могут быть nil (worker без базы): тогда /runs отвечает 503.
// Dispatcher может быть nil: тогда POST /dispatch отвечает 503.
type Config struct {
	Runs       RunReader
	Steps      StepReader
	Workflows  WorkflowCatalog
	Dispatcher Dispatcher
	Logger     *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		runs:       cfg.Runs,
		steps:      cfg.Steps,
		workflows:  cfg.Workflows,
		dispatcher: cfg.Dispatcher,
		logger:     logger,
	}
}
