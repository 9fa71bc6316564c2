package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shaiso/adws/internal/domain"
)

// StepRunRepo — репозиторий для работы с step_runs.
type StepRunRepo struct {
	db DBTX
}

// NewStepRunRepo создаёт новый StepRunRepo.
func NewStepRunRepo(db DBTX) *StepRunRepo {
	return &StepRunRepo{db: db}
}

// Create создаёт запись шага.
// Позиция шага в workflow хранится в position: порядок шагов важен.
func (r *StepRunRepo) Create(ctx context.Context, sr *domain.StepRun, position int) error {
	outputJSON, err := marshalJSON(sr.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	errorJSON, err := marshalJSON(sr.Error)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	query := `
		INSERT INTO step_runs (id, run_id, position, step_name, status, attempts, always_run,
		                       output, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.Exec(ctx, query,
		sr.ID,
		sr.RunID,
		position,
		sr.StepName,
		sr.Status,
		sr.Attempt,
		sr.AlwaysRun,
		outputJSON,
		errorJSON,
		sr.StartedAt,
		sr.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert step run: %w", err)
	}
	return nil
}

// ListByRunID возвращает шаги run в порядке workflow.
func (r *StepRunRepo) ListByRunID(ctx context.Context, runID uuid.UUID) ([]domain.StepRun, error) {
	query := `
		SELECT id, run_id, step_name, status, attempts, always_run, output, error,
		       started_at, finished_at
		FROM step_runs
		WHERE run_id = $1
		ORDER BY position ASC
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list step runs by run_id: %w", err)
	}
	defer rows.Close()

	var result []domain.StepRun
	for rows.Next() {
		sr, err := scanStepRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sr)
	}
	return result, rows.Err()
}

// scanStepRun сканирует строку в StepRun.
func scanStepRun(row pgx.Row) (*domain.StepRun, error) {
	var sr domain.StepRun
	var outputJSON, errorJSON []byte

	err := row.Scan(
		&sr.ID,
		&sr.RunID,
		&sr.StepName,
		&sr.Status,
		&sr.Attempt,
		&sr.AlwaysRun,
		&outputJSON,
		&errorJSON,
		&sr.StartedAt,
		&sr.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan step run: %w", err)
	}

	if err := unmarshalJSON(outputJSON, &sr.Output); err != nil {
		return nil, fmt.Errorf("unmarshal output: %w", err)
	}
	if err := unmarshalJSON(errorJSON, &sr.Error); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	return &sr, nil
}
