// Package scheduler запускает задание по cron-расписанию.
//
// Структура:
//   - scheduler.go — цикл тиков и защита от наложения запусков
//   - cron.go      — разбор cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    CronExpr:       "@every 6h",
//	    RunImmediately: true,
//	    Job:            runJob,
//	    Logger:         logger,
//	})
//	err := sched.Run(ctx) // блокируется до отмены ctx
package scheduler
