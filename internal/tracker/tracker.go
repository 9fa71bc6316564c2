// Package tracker — доступ к внешнему трекеру задач (issues).
//
// Finalize закрывает задачу после успешного workflow или записывает
// в её notes метаданные ошибки. Dispatch guard читает notes перед
// повторной диспетчеризацией.
package tracker

import (
	"context"
	"errors"
)

// Ошибки трекера.
var (
	// ErrIssueNotFound — задача не найдена.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrTrackerFailed — команда трекера завершилась ошибкой.
	ErrTrackerFailed = errors.New("tracker command failed")
)

// Issue — задача трекера.
type Issue struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Status string   `json:"status"`
	Notes  string   `json:"notes,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// IsClosed возвращает true для закрытой задачи.
func (i *Issue) IsClosed() bool {
	return i.Status == "closed"
}

// Tracker — операции над задачами, которые нужны ADWS.
type Tracker interface {
	// Show возвращает задачу по ID.
	Show(ctx context.Context, id string) (*Issue, error)

	// Close закрывает задачу с причиной.
	Close(ctx context.Context, id, reason string) error

	// UpdateNotes заменяет notes задачи.
	UpdateNotes(ctx context.Context, id, notes string) error
}
