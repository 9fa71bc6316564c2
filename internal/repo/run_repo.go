package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shaiso/adws/internal/domain"
)

// RunRepo — репозиторий для работы с workflow_runs.
type RunRepo struct {
	db DBTX
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(db DBTX) *RunRepo {
	return &RunRepo{db: db}
}

const runColumns = `id, workflow, command, issue_id, status, attempt, inputs, outputs,
		       error, finalize_action, started_at, finished_at, created_at`

// Create создаёт запись run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	inputsJSON, err := marshalJSON(run.Inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}
	outputsJSON, err := marshalJSON(run.Outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}
	errorJSON, err := marshalJSON(run.Error)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	query := `
		INSERT INTO workflow_runs (id, workflow, command, issue_id, status, attempt, inputs, outputs,
		                           error, finalize_action, started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.db.Exec(ctx, query,
		run.ID,
		run.Workflow,
		nullString(run.Command),
		nullString(run.IssueID),
		run.Status,
		run.Attempt,
		inputsJSON,
		outputsJSON,
		errorJSON,
		nullString(run.FinalizeAction),
		run.StartedAt,
		run.FinishedAt,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Update обновляет статус, результат и finalize action.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	outputsJSON, err := marshalJSON(run.Outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}
	errorJSON, err := marshalJSON(run.Error)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	query := `
		UPDATE workflow_runs
		SET status = $2, outputs = $3, error = $4, finalize_action = $5,
		    started_at = $6, finished_at = $7
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		run.ID,
		run.Status,
		outputsJSON,
		errorJSON,
		nullString(run.FinalizeAction),
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// List возвращает runs с фильтрацией, новые первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + `
		FROM workflow_runs
		WHERE ($1::text IS NULL OR workflow = $1)
		  AND ($2::text IS NULL OR issue_id = $2)
		  AND ($3::text IS NULL OR status = $3::run_status)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.db.Query(ctx, query,
		nullString(filter.Workflow),
		nullString(filter.IssueID),
		nullString(string(filter.Status)),
		filter.limit(),
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// --- Helpers ---

// DefaultListLimit — размер страницы по умолчанию.
const DefaultListLimit = 50

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	Workflow string
	IssueID  string
	Status   domain.RunStatus
	Limit    int
	Offset   int
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// scanRun сканирует строку (pgx.Row или pgx.Rows) в Run.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var inputsJSON, outputsJSON, errorJSON []byte
	var command, issueID, finalizeAction *string

	err := row.Scan(
		&run.ID,
		&run.Workflow,
		&command,
		&issueID,
		&run.Status,
		&run.Attempt,
		&inputsJSON,
		&outputsJSON,
		&errorJSON,
		&finalizeAction,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if err := unmarshalJSON(inputsJSON, &run.Inputs); err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}
	if err := unmarshalJSON(outputsJSON, &run.Outputs); err != nil {
		return nil, fmt.Errorf("unmarshal outputs: %w", err)
	}
	if err := unmarshalJSON(errorJSON, &run.Error); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	run.Command = deref(command)
	run.IssueID = deref(issueID)
	run.FinalizeAction = deref(finalizeAction)

	return &run, nil
}

// marshalJSON возвращает nil для nil-значения (NULL в БД).
func marshalJSON(v any) ([]byte, error) {
	if isNil(v) {
		return nil, nil
	}
	return json.Marshal(v)
}

func isNil(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case map[string]any:
		return x == nil
	case *domain.PipelineError:
		return x == nil
	}
	return false
}

// unmarshalJSON пропускает NULL.
func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
