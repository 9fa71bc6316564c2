// Package telemetry — логи и метрики ADWS.
//
// Логгер настраивается один раз при старте (SetupLoggerWith из секции
// logging) и дальше передаётся через Config компонентов. Поля run_id, workflow, step и issue_id добавляются
// декораторами WithRunID, WithWorkflow, WithStep и WithIssue.
//
// Metrics собирает счётчики попыток шагов, исходов workflow, действий
// finalize и пропусков диспетчеризации. Методы Metrics безопасны на nil,
// поэтому метрики в тестах и в CLI можно не создавать.
package telemetry
