// Package mq связывает контроллер и удалённых воркеров через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с автоматическим reconnect (backoff)
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация событий о партициях
//   - consumer.go   — потребление событий
//
// Типы сообщений:
//   - partition.ready      — партиция записей ждёт воркера
//   - partition.completed  — воркер закончил партицию (успешно или нет)
//
// Сами данные партиции (конфигурация цикла, диапазон, бандл результатов)
// лежат в Postgres, в сообщении передаётся только идентификатор.
package mq
