package ntuple

import "errors"

var (
	// ErrNotFound — объект, поток или пространство имён не найдены.
	ErrNotFound = errors.New("not found")

	// ErrNotStream — по пути находится не поток записей.
	ErrNotStream = errors.New("not a record stream")

	// ErrNameConflict — имя уже занято объектом другого вида.
	ErrNameConflict = errors.New("name conflict")

	// ErrReadOnly — файл открыт только для чтения.
	ErrReadOnly = errors.New("file is read-only")

	// ErrUnknownField — поле не подключено.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnsupportedTarget — тип переменной не поддерживается.
	ErrUnsupportedTarget = errors.New("unsupported target type")

	// ErrOutOfRange — индекс записи вне диапазона.
	ErrOutOfRange = errors.New("record index out of range")
)
