// Package cycle — интерфейс пользовательского цикла и его возможности.
//
// Cycle — хуки жизненного цикла. Возможности цикла — отдельные интерфейсы:
//   - Configurable — свойства и конфигурация
//   - Producer     — гистограммы и другие артефакты
//   - StreamUser   — доступ к входным и выходным потокам
//   - LoggerAware  — логгер запуска
//
// Base собирает стандартные реализации возможностей встраиванием,
// пользовательский цикл встраивает Base и переопределяет нужные хуки.
package cycle
