// Package telemetry — логи и метрики Cyclone.
//
// Логгер настраивается из LOG_LEVEL и LOG_FORMAT; уровень может переопределить файл задания.
// Capture дублирует записи воркера в буфер, чтобы контроллер показал их после слияния.
//
// Метрики (metrics.go) отдаются воркером на /metrics.
package telemetry
