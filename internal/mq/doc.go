// Package mq — RabbitMQ для ADWS.
//
// Структура:
//   - connection.go — соединение с reconnect и graceful shutdown
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация событий и запросов на диспетчеризацию
//   - consumer.go   — потребление очереди диспетчеризации
//
// Типы сообщений:
//   - run.finished      — run завершён (успех или ошибка, finalize action)
//   - workflow.dispatch — запрос на выполнение команды для задачи
//
// Exchanges:
//   - adws.runs     — события runs
//   - adws.dispatch — запросы на выполнение
//   - adws.dlq      — dead letter queue
package mq
