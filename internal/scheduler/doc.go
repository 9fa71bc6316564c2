// Package scheduler ставит команды ADWS в очередь по расписанию.
//
// Расписание задаётся в конфигурации (schedules) и живёт в памяти
// adws-worker'а: для каждой записи хранится ближайшее время запуска.
// Tick публикует сообщения workflow.dispatch для всех наступивших
// записей и сдвигает их время; дальше сообщение обрабатывает обычный
// dispatch worker с проверкой задачи.
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Entries:    scheduler.EntriesFromConfig(cfg.Schedules),
//	    Dispatcher: publisher,
//	    Logger:     logger,
//	})
//	sched.Start(ctx)
//	defer sched.Stop()
//
// Пропущенные запуски (процесс был остановлен) не догоняются:
// следующее время считается от текущего момента.
package scheduler
