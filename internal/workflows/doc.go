// Package workflows — определения workflow и их загрузка по имени.
//
// Определения хранятся в YAML. Встроенные (build, test, review, verify,
// document и их не-dispatchable части) вшиты в бинарник, файлы из
// настроенной директории имеют приоритет над встроенными.
//
// Определение задаёт ровно одну из форм:
//
//	steps:     [...]              # список шагов
//	sequence:  [a, b, ...]        # конкатенация других workflow по имени
//	verify:    {main, check}      # шаг и его проверка
//
// CommandWorkflows — статическая таблица "команда → workflow".
package workflows
