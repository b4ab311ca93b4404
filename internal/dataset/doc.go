// Package dataset — валидация и упорядочивание входных датасетов.
//
//   - validate.go — проверка файлов, подсчёт записей, ограничение skip/max
//   - cache.go    — кеш результатов проверки в bbolt
//   - arrange.go  — устойчивая группировка датасетов по типу
package dataset
