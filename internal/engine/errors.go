package engine

import "errors"

// Ошибки валидации JobConfig.
var (
	// ErrNoCycles — задание не содержит циклов.
	ErrNoCycles = errors.New("job has no cycles")

	// ErrEmptyCycleName — цикл без имени.
	ErrEmptyCycleName = errors.New("cycle has empty name")

	// ErrUnknownCycle — цикл не зарегистрирован.
	ErrUnknownCycle = errors.New("unknown cycle")

	// ErrInvalidMode — неизвестный режим выполнения.
	ErrInvalidMode = errors.New("invalid run mode")

	// ErrMissingEndpoint — для DISTRIBUTED не указан адрес пула.
	ErrMissingEndpoint = errors.New("distributed mode requires endpoint")

	// ErrNoDatasets — цикл без датасетов.
	ErrNoDatasets = errors.New("cycle has no datasets")

	// ErrNoFiles — датасет без файлов.
	ErrNoFiles = errors.New("dataset has no files")

	// ErrDuplicateStream — имя потока повторяется в одной роли.
	ErrDuplicateStream = errors.New("duplicate stream name")

	// ErrUnknownRole — неизвестная роль потока.
	ErrUnknownRole = errors.New("unknown stream role")

	// ErrUnknownStream — срез ссылается на необъявленный поток.
	ErrUnknownStream = errors.New("predicate references unknown stream")

	// ErrEmptyType — датасет без типа.
	ErrEmptyType = errors.New("dataset has empty type")
)

// Ошибки выражений.
var (
	// ErrExprParse — выражение не разбирается.
	ErrExprParse = errors.New("expression parse failed")

	// ErrExprEval — ошибка вычисления выражения.
	ErrExprEval = errors.New("expression evaluation failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Cycle   string // имя цикла, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Cycle != "" {
		return "cycle " + e.Cycle + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(cycle, field, message string, err error) *ValidationError {
	return &ValidationError{
		Cycle:   cycle,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
