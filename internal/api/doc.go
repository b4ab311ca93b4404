// Package api содержит HTTP API воркера: здоровье, метрики и
// просмотр состояния партиций и истории циклов.
//
// Структура:
//   - handler.go   — Handler с DI (хранилища, проверка здоровья, logger)
//   - routes.go    — регистрация маршрутов
//   - middleware.go — middleware (logging, recovery)
//   - response.go  — унифицированные JSON-ответы и обработка ошибок
//   - dto.go       — ответы API
//   - partition_handler.go — /partitions и /dispatches
//   - run_handler.go       — /jobs/{job}/runs
package api
