package worker

import "errors"

var (
	// ErrPartitionNotFound — партиция не найдена (раздачу уже собрали и удалили).
	ErrPartitionNotFound = errors.New("partition not found")

	// ErrPartitionNotQueued — партиция уже забрана другим воркером или завершена.
	ErrPartitionNotQueued = errors.New("partition is not in QUEUED status")

	// ErrBadDatasetIndex — индекс датасета вне конфигурации цикла.
	ErrBadDatasetIndex = errors.New("dataset index out of range")
)
