package controller

import "errors"

var (
	// ErrInvalidConfig — задание не прошло структурную валидацию.
	ErrInvalidConfig = errors.New("invalid job configuration")

	// ErrNotInitialized — Initialize ещё не вызывался.
	ErrNotInitialized = errors.New("controller not initialized")

	// ErrAlreadyInitialized — повторный Initialize.
	ErrAlreadyInitialized = errors.New("controller already initialized")

	// ErrNoMoreCycles — все циклы уже выполнены.
	ErrNoMoreCycles = errors.New("no more cycles")

	// ErrFailed — контроллер остановлен фатальной ошибкой.
	ErrFailed = errors.New("controller failed")

	// ErrNoPoolOpener — распределённый режим без Opener.
	ErrNoPoolOpener = errors.New("distributed mode requires a worker pool opener")
)
