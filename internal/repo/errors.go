package repo

import "errors"

var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState — запись уже в другом статусе (например, партицию забрал другой воркер).
	ErrInvalidState = errors.New("invalid state")
)
