// Package finalize — действия над задачей трекера после выполнения workflow.
//
// Успех закрывает задачу, ошибка записывает в notes однострочные
// метаданные ADWS_FAILED. Ошибки трекера не пробрасываются: результат
// finalize всегда одна из строк-действий (skipped, closed, close_failed,
// tagged_failure, tag_failed).
//
// ShouldSkipDispatch читает notes и решает, можно ли снова
// диспетчеризовать задачу.
package finalize
