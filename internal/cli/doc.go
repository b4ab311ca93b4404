// Package cli реализует команды утилиты cyclone.
//
// # Команды
//
//   - run JOB.yaml — выполнить задание (один раз или по cron)
//   - merge -o OUT IN... — объединить выходные файлы нескольких запусков
//   - ls FILE — показать дерево выходного файла
//   - history — последние запуски циклов из Postgres
//
// Каждая команда создаётся фабричной функцией (NewRunCmd и т.д.),
// принимающей appFn — замыкание для ленивого создания App после
// разбора PersistentFlags.
//
// # Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: cyclone ls out.cyc --json | jq .
package cli
