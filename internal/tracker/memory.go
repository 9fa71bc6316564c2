package tracker

import (
	"context"
	"fmt"
	"sync"
)

// Memory — Tracker в памяти (dry-run и тесты).
type Memory struct {
	mu     sync.Mutex
	issues map[string]*Issue

	// CloseErr / UpdateErr — ошибки, которые вернут Close / UpdateNotes.
	CloseErr  error
	UpdateErr error

	// Calls — журнал вызовов ("close adws-1", "update adws-1").
	Calls []string
}

// NewMemory создаёт Memory с набором задач.
func NewMemory(issues ...*Issue) *Memory {
	m := &Memory{issues: make(map[string]*Issue)}
	for _, issue := range issues {
		cp := *issue
		m.issues[issue.ID] = &cp
	}
	return m
}

// Show возвращает копию задачи.
func (m *Memory) Show(_ context.Context, id string) (*Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, "show "+id)
	issue, ok := m.issues[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIssueNotFound, id)
	}
	cp := *issue
	return &cp, nil
}

// Close помечает задачу закрытой.
func (m *Memory) Close(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, "close "+id)
	if m.CloseErr != nil {
		return m.CloseErr
	}
	issue, ok := m.issues[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrIssueNotFound, id)
	}
	issue.Status = "closed"
	return nil
}

// UpdateNotes заменяет notes задачи.
func (m *Memory) UpdateNotes(_ context.Context, id, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, "update "+id)
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	issue, ok := m.issues[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrIssueNotFound, id)
	}
	issue.Notes = notes
	return nil
}
