// Package steps содержит функции шагов, на которые ссылается Step.Function.
//
// # Обзор
//
// Function — исполнитель одной попытки шага. Функция:
//   - Получает входы шага (входы workflow + значения из InputFrom)
//   - Выполняет действие (shell-команда, вызов агента, чтение файлов)
//   - Возвращает Output, который executor сохранит в outputs[Step.Output]
//
// Повторы, условия и always-run обрабатывает executor, а не функции.
//
// # Интерфейс Function
//
//	type Function interface {
//	    Name() string
//	    Run(ctx context.Context, req *Request) (*Response, error)
//	}
//
// # Registry
//
//	registry := steps.DefaultRegistry(steps.Config{})
//	fn, err := registry.Get("agent")
//
// Произвольную Go-функцию можно зарегистрировать через NewFuncStep.
//
// # Стандартные функции
//
//   - shell      — Step.Command через "sh -c"; ненулевой код выхода → PipelineError
//     с контекстом tool, command, exit_code, output
//   - agent      — CLI агента (claude -p) с промптом из Params["prompt"]
//   - read_files — содержимое файлов из Params["paths"] и входа "files"
//   - transform  — рендеринг Params["mappings"] через Go templates
//   - delay      — пауза Params["duration_sec"] / Params["duration_ms"]
package steps
