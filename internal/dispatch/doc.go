// Package dispatch содержит worker, который забирает запросы на запуск
// workflow из очереди workflow.dispatch и выполняет их.
//
// Перед запуском проверяются notes задачи: задачи с маркером ADWS_FAILED
// или needs_human повторно не запускаются.
package dispatch
