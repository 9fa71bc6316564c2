// Package api содержит HTTP API сервер ADWS.
//
// Структура:
//   - handler.go          — Handler с DI (история run, каталог workflow, dispatch, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (request id, logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects
//   - workflow_handler.go — обработчики для /workflows
//   - run_handler.go      — обработчики для /runs
//   - dispatch_handler.go — постановка команды в очередь
//
// История run и каталог workflow доступны только на чтение.
// Единственный изменяющий endpoint — POST /api/v1/dispatch, он лишь
// публикует сообщение в очередь workflow.dispatch.
package api
