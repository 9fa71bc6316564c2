// Package cli реализует инструмент командной строки ADWS.
//
// # Обзор
//
// Команды делятся на две группы.
//
// Локальные выполняют workflow в текущем checkout и работают с трекером
// задач напрямую (через *app.App):
//   - run: запуск workflow по имени или команде (/build, /test, ...)
//   - verify: запуск проверок и отчёт "N checks failed"
//   - workflows: list, show
//   - guard: проверка notes задачи перед диспетчеризацией
//
// Удалённые работают через HTTP API worker'а (Client):
//   - runs: list, show, steps
//   - dispatch: постановка команды в очередь
//
// # Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: adws runs list --json | jq .
//
// Каждая группа создаётся фабричной функцией (NewRunCmd и т.д.),
// принимающей замыкания для ленивого создания зависимостей после
// парсинга PersistentFlags.
package cli
