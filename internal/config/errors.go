package config

import "errors"

var (
	// ErrEmptyJob — файл задания пуст.
	ErrEmptyJob = errors.New("job file is empty")

	// ErrInvalidProperty — свойство не скаляр и не список скаляров.
	ErrInvalidProperty = errors.New("invalid property value")
)
