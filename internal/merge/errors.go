package merge

import "errors"

var (
	// ErrKindMismatch — артефакты с одним ключом имеют разный вид.
	ErrKindMismatch = errors.New("kind mismatch")

	// ErrBinningMismatch — гистограммы с разной разбивкой.
	ErrBinningMismatch = errors.New("histogram binning mismatch")

	// ErrNoMergeFunc — для вида не зарегистрирована функция слияния.
	ErrNoMergeFunc = errors.New("no merge function registered")

	// ErrDuplicateArtifact — артефакт с таким ключом уже есть в бандле.
	ErrDuplicateArtifact = errors.New("duplicate artifact")

	// ErrReservedKind — вид совпадает со встроенным и не может быть Opaque.
	ErrReservedKind = errors.New("reserved kind")

	// ErrInvalidValue — значение не может быть слито или закодировано.
	ErrInvalidValue = errors.New("invalid value")
)
