package finalize

import "strings"

// ShouldSkipDispatch проверяет notes задачи перед повторной диспетчеризацией.
// Маркеры ищутся как подстроки с учётом регистра.
func ShouldSkipDispatch(notes string) (bool, string) {
	switch {
	case strings.Contains(notes, MarkerFailed):
		return true, "previous ADWS run failed (" + MarkerFailed + ")"
	case strings.Contains(notes, MarkerNeedsHuman):
		return true, "issue is marked " + MarkerNeedsHuman
	default:
		return false, ""
	}
}
