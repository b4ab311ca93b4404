package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cyclone/internal/domain"
)

// PartitionResponse — партиция без тела бандла.
type PartitionResponse struct {
	ID          uuid.UUID  `json:"id"`
	DispatchID  uuid.UUID  `json:"dispatch_id"`
	Worker      int        `json:"worker"`
	Cycle       string     `json:"cycle"`
	Dataset     string     `json:"dataset"`
	First       int64      `json:"first"`
	Count       int64      `json:"count"`
	Status      string     `json:"status"`
	BundleBytes int        `json:"bundle_bytes"`
	Severity    string     `json:"severity,omitempty"`
	Error       string     `json:"error,omitempty"`
	Log         string     `json:"log,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PartitionFromDomain конвертирует domain.Partition. Лог включается по запросу.
func PartitionFromDomain(p *domain.Partition, withLog bool) PartitionResponse {
	resp := PartitionResponse{
		ID:          p.ID,
		DispatchID:  p.DispatchID,
		Worker:      p.Worker,
		Cycle:       p.Cycle.Name,
		First:       p.First,
		Count:       p.Count,
		Status:      string(p.Status),
		BundleBytes: len(p.Bundle),
		Error:       p.Error,
		StartedAt:   p.StartedAt,
		FinishedAt:  p.FinishedAt,
		CreatedAt:   p.CreatedAt,
	}
	if p.DatasetIndex >= 0 && p.DatasetIndex < len(p.Cycle.Datasets) {
		resp.Dataset = p.Dataset().Key()
	}
	if p.Status == domain.PartitionFailed {
		resp.Severity = p.Severity.String()
	}
	if withLog {
		resp.Log = p.Log
	}
	return resp
}

// CycleRunResponse — запись истории цикла.
type CycleRunResponse struct {
	ID         uuid.UUID  `json:"id"`
	Job        string     `json:"job"`
	Cycle      string     `json:"cycle"`
	Index      int        `json:"index"`
	Status     string     `json:"status"`
	Processed  int64      `json:"processed"`
	Skipped    int64      `json:"skipped"`
	Expected   int64      `json:"expected"`
	DurationMS int64      `json:"duration_ms"`
	RateHz     float64    `json:"rate_hz"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// CycleRunFromDomain конвертирует domain.CycleRun.
func CycleRunFromDomain(r domain.CycleRun) CycleRunResponse {
	return CycleRunResponse{
		ID:         r.ID,
		Job:        r.Job,
		Cycle:      r.Cycle,
		Index:      r.Index,
		Status:     string(r.Status),
		Processed:  r.Processed,
		Skipped:    r.Skipped,
		Expected:   r.Expected,
		DurationMS: r.Duration().Milliseconds(),
		RateHz:     r.Rate(),
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
