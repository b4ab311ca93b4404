// Package engine содержит выражения и проверку структуры задания.
//
// Включает:
//   - predicate.go — генераторные срезы: условия Go templates над записью
//   - validate.go  — структурная проверка JobConfig до запуска
package engine
