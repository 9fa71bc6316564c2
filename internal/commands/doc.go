// Package commands — командный слой ADWS.
//
// Runner связывает загрузку workflow, executor и finalize:
//
//	команда → workflow → выполнение → finalize → запись в историю → событие
//
// "Workflow не найден" — жёсткая ошибка (error из Run). Ошибки выполнения
// возвращаются мягко: Result.Success == false с PipelineError внутри.
// Ошибки истории и публикации событий только логируются.
package commands
