// Package executor выполняет workflow: условия, повторы с паузой,
// передачу outputs между шагами, always-run шаги и агрегацию ошибок.
package executor
