// Package controller выполняет задание: циклы по порядку, датасеты
// каждого цикла по порядку, локально или через пул воркеров.
//
// Состояния контроллера:
//
//	IDLE → INITIALIZED → RUNNING → COMPLETED | FAILED
//
// Реакция на ошибки определяется тяжестью (domain.Severity):
// SkipDataset пропускает датасет, SkipCycle прерывает цикл,
// StopExecution останавливает всё задание.
package controller
