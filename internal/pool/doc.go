// Package pool раздаёт диапазоны записей датасета воркерам.
//
// Реализации:
//   - InProcess — N горутин в текущем процессе (endpoint inproc://N)
//   - MQ        — удалённые воркеры через Postgres и RabbitMQ (endpoint amqp://...)
//
// Каждый воркер выполняет полный жизненный цикл датасета над своей
// партицией и возвращает ровно один бандл или ошибку. Пул никогда не
// пишет в итоговый файл: это делает только контроллер после слияния.
package pool
