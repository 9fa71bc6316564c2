package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/adws/internal/domain"
)

// Store — история выполнения поверх PostgreSQL.
//
// SaveRun записывает run и все его шаги в одной транзакции.
type Store struct {
	pool  *pgxpool.Pool
	Runs  *RunRepo
	Steps *StepRunRepo
}

// NewStore создаёт Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:  pool,
		Runs:  NewRunRepo(pool),
		Steps: NewStepRunRepo(pool),
	}
}

// SaveRun сохраняет завершённый run с шагами.
func (s *Store) SaveRun(ctx context.Context, run *domain.Run, steps []*domain.StepRun) error {
	if !run.IsFinished() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, run.ID, run.Status)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return saveRun(ctx, tx, run, steps)
	})
}

// saveRun пишет run и шаги через db (транзакция в production, фейк в тестах).
func saveRun(ctx context.Context, db DBTX, run *domain.Run, steps []*domain.StepRun) error {
	if err := NewRunRepo(db).Create(ctx, run); err != nil {
		return err
	}

	stepRepo := NewStepRunRepo(db)
	for i, sr := range steps {
		sr.RunID = run.ID
		if err := stepRepo.Create(ctx, sr, i); err != nil {
			return fmt.Errorf("step %s: %w", sr.StepName, err)
		}
	}
	return nil
}
