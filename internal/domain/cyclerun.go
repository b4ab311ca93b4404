package domain

import (
	"time"

	"github.com/google/uuid"
)

// CycleRun — запись истории выполнения одного цикла.
type CycleRun struct {
	ID uuid.UUID `json:"id"`

	// Job — имя задания.
	Job string `json:"job"`

	Cycle string `json:"cycle"`
	Index int    `json:"index"`

	Status CycleRunStatus `json:"status"`

	// Processed, Skipped — итоговая статистика по всем датасетам.
	Processed int64 `json:"processed"`
	Skipped   int64 `json:"skipped"`

	// Expected — сколько записей должно было быть обработано.
	// Expected > Processed означает потерянные партиции.
	Expected int64 `json:"expected"`

	Error string `json:"error,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration возвращает продолжительность выполнения.
func (r *CycleRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Rate возвращает скорость обработки, записей в секунду.
func (r *CycleRun) Rate() float64 {
	d := r.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(r.Processed) / d
}

// Finish завершает запись истории.
func (r *CycleRun) Finish(status CycleRunStatus, err error) {
	now := time.Now()
	r.Status = status
	r.FinishedAt = &now
	if err != nil {
		r.Error = err.Error()
	}
}
