package pool

import "errors"

var (
	// ErrUnknownEndpoint — схема endpoint не поддерживается.
	ErrUnknownEndpoint = errors.New("unknown worker pool endpoint")

	// ErrPoolClosed — пул уже закрыт.
	ErrPoolClosed = errors.New("worker pool closed")

	// ErrPartitionLost — воркер не вернул результат (упал или не успел).
	ErrPartitionLost = errors.New("partition result missing")
)
