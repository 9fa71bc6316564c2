package repo

import "errors"

var (
	// ErrNotFound — run с таким ID нет.
	ErrNotFound = errors.New("run not found")

	// ErrInvalidState — run ещё не завершён и не может быть сохранён в историю.
	ErrInvalidState = errors.New("run is not finished")

	// ErrNoDSN — database.url пуст.
	ErrNoDSN = errors.New("database url is empty")
)
