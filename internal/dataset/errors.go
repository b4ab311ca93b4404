package dataset

import "errors"

var (
	// ErrNoFiles — после проверки в датасете не осталось файлов.
	ErrNoFiles = errors.New("no valid files in dataset")

	// ErrStreamMismatch — синхронизированные потоки файла имеют разное число записей.
	ErrStreamMismatch = errors.New("synchronized streams disagree")

	// ErrNoInputStreams — в датасете не объявлено входных потоков.
	ErrNoInputStreams = errors.New("no input streams declared")
)
