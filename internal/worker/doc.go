// Package worker реализует удалённого воркера распределённого пула.
//
// Воркер:
//   - Получает partition.ready из очереди partitions.ready (event-driven)
//   - Периодически забирает QUEUED партиции из БД (polling fallback)
//   - Атомарно захватывает партицию (QUEUED → RUNNING)
//   - Создаёт экземпляр цикла из реестра и обрабатывает диапазон записей
//   - Сохраняет бандл (msgpack) и лог в Postgres
//   - Публикует partition.completed для барьера контроллера
//
// Воркеры масштабируются горизонтально: несколько экземпляров
// потребляют из одной очереди, захват в БД исключает двойную обработку.
package worker
