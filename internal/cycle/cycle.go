package cycle

import (
	"errors"
	"log/slog"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
)

var (
	// ErrCycleNotFound — цикл не найден в реестре.
	ErrCycleNotFound = errors.New("cycle not found")

	// ErrUnsupportedProperty — тип переменной свойства не поддерживается.
	ErrUnsupportedProperty = errors.New("unsupported property type")

	// ErrDuplicateProperty — свойство объявлено дважды.
	ErrDuplicateProperty = errors.New("duplicate property")

	// ErrInvalidPropertyValue — значение свойства не разбирается.
	ErrInvalidPropertyValue = errors.New("invalid property value")

	// ErrNoStreams — цикл обращается к потокам вне обработки датасета.
	ErrNoStreams = errors.New("streams are not attached")
)

// Event — текущая запись датасета.
type Event struct {
	// Index — глобальный индекс записи в датасете.
	Index int64

	// File — файл, из которого прочитана запись.
	File string

	view RecordView
}

// RecordView даёт текущую запись потока.
type RecordView interface {
	Current(stream string) domain.Record
}

// NewEvent создаёт событие поверх источника записей.
func NewEvent(index int64, file string, view RecordView) *Event {
	return &Event{Index: index, File: file, view: view}
}

// Record возвращает текущую запись потока.
func (e *Event) Record(stream string) domain.Record {
	if e.view == nil {
		return nil
	}
	return e.view.Current(stream)
}

// Cycle — хуки пользовательского цикла.
//
// Любой хук может вернуть ошибку; тяжесть задаётся через domain.Fault.
// Ошибки без Fault считаются SkipDataset для хуков датасета и записи
// и SkipCycle для BeginCycle/EndCycle.
type Cycle interface {
	BeginCycle() error
	BeginInputData(ds *domain.InputDataset) error
	BeginInputFile(ds *domain.InputDataset) error
	Execute(ev *Event, weight float64) error
	EndInputData(ds *domain.InputDataset) error
	EndCycle() error
}

// Configurable — цикл со свойствами и доступом к конфигурации.
type Configurable interface {
	Properties() *Properties
	SetConfig(cfg *domain.CycleConfig)
}

// Producer — цикл, создающий артефакты для слияния.
type Producer interface {
	// Artifacts возвращает артефакты текущего датасета.
	Artifacts() []merge.Artifact

	// ResetArtifacts очищает артефакты перед новым датасетом.
	ResetArtifacts()
}

// Input — входные потоки датасета.
type Input interface {
	ConnectInputField(stream, field string, target any) error
	Current(stream string) domain.Record
}

// Output — выходные потоки датасета.
type Output interface {
	DeclareOutputField(target any, field, stream string) error
}

// StreamUser — цикл, читающий и пишущий потоки.
type StreamUser interface {
	AttachStreams(in Input, out Output)
	DetachStreams()
}

// LoggerAware — цикл, которому передаётся логгер запуска.
type LoggerAware interface {
	SetLogger(logger *slog.Logger)
}

// Hooks — пустые реализации хуков.
type Hooks struct{}

func (Hooks) BeginCycle() error                          { return nil }
func (Hooks) BeginInputData(*domain.InputDataset) error { return nil }
func (Hooks) BeginInputFile(*domain.InputDataset) error { return nil }
func (Hooks) EndInputData(*domain.InputDataset) error   { return nil }
func (Hooks) EndCycle() error                            { return nil }

// Base — стандартный набор возможностей цикла.
// Возможности независимы и подключаются встраиванием.
type Base struct {
	Hooks
	Settings
	Hists
	NTuple
}

// NewBase создаёт Base.
func NewBase() Base {
	return Base{
		Settings: NewSettings(),
		Hists:    NewHists(),
	}
}
