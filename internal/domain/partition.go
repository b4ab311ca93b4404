package domain

import (
	"time"

	"github.com/google/uuid"
)

// Partition — непересекающийся диапазон записей одного датасета,
// отданный одному воркеру.
type Partition struct {
	ID uuid.UUID `json:"id"`

	// DispatchID — общий идентификатор всех партиций одной раздачи датасета.
	DispatchID uuid.UUID `json:"dispatch_id"`

	// Worker — порядковый номер воркера в раздаче.
	Worker int `json:"worker"`

	// Cycle — конфигурация цикла (датасеты уже провалидированы).
	Cycle CycleConfig `json:"cycle"`

	// DatasetIndex — индекс датасета в Cycle.Datasets.
	DatasetIndex int `json:"dataset_index"`

	// First, Count — диапазон глобальных индексов записей.
	First int64 `json:"first"`
	Count int64 `json:"count"`

	Status PartitionStatus `json:"status"`

	// Bundle — закодированный результат воркера (msgpack).
	Bundle []byte `json:"-"`

	// Log — диагностический лог воркера.
	Log string `json:"log,omitempty"`

	Error string `json:"error,omitempty"`

	// Severity — тяжесть ошибки воркера (для FAILED).
	Severity Severity `json:"severity,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Dataset возвращает датасет партиции.
func (p *Partition) Dataset() *InputDataset {
	return &p.Cycle.Datasets[p.DatasetIndex]
}

// MarkRunning переводит партицию в RUNNING.
func (p *Partition) MarkRunning() {
	now := time.Now()
	p.Status = PartitionRunning
	p.StartedAt = &now
}

// MarkSucceeded сохраняет результат и переводит партицию в SUCCEEDED.
func (p *Partition) MarkSucceeded(bundle []byte, log string) {
	now := time.Now()
	p.Status = PartitionSucceeded
	p.FinishedAt = &now
	p.Bundle = bundle
	p.Log = log
}

// MarkFailed переводит партицию в FAILED.
// Лог сохраняется и при неудаче: он нужен для разбора.
// Ошибка без уровня считается SkipDataset.
func (p *Partition) MarkFailed(err error, log string) {
	now := time.Now()
	p.Status = PartitionFailed
	p.FinishedAt = &now
	p.Error = err.Error()
	p.Severity = SeverityOf(err, SkipDataset)
	p.Log = log
}
