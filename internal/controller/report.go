package controller

import (
	"github.com/shaiso/Cyclone/internal/domain"
)

// DatasetStatus — итог обработки датасета.
type DatasetStatus string

const (
	DatasetProcessed DatasetStatus = "PROCESSED"
	DatasetSkipped   DatasetStatus = "SKIPPED"
)

// WorkerLog — лог одного воркера.
type WorkerLog struct {
	Worker int
	Log    string
	Err    error
}

// DatasetReport — итог одного датасета.
type DatasetReport struct {
	Dataset string
	Status  DatasetStatus

	// Output — файл, в который записан результат.
	Output string

	Processed int64
	Skipped   int64

	// Expected — размер диапазона записей после валидации.
	Expected int64

	// Missing — записи потерянных партиций.
	Missing int64

	// Rejected — артефакты, отклонённые при слиянии.
	Rejected int

	Workers []WorkerLog
	Err     error
}

// CycleReport — итог цикла.
type CycleReport struct {
	Run      domain.CycleRun
	Datasets []DatasetReport
}

func (r *CycleReport) add(d DatasetReport) {
	r.Datasets = append(r.Datasets, d)
	r.Run.Processed += d.Processed
	r.Run.Skipped += d.Skipped
	r.Run.Expected += d.Expected
}
