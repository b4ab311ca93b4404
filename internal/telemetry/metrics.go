package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessed — обработанные записи по циклам.
	RecordsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyclone_records_processed_total",
		Help: "Records processed, by cycle",
	}, []string{"cycle"})

	// RecordsSkipped — пропущенные записи по циклам.
	RecordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyclone_records_skipped_total",
		Help: "Records skipped by a fault, by cycle",
	}, []string{"cycle"})

	// RecordsMissing — записи, потерянные из-за упавших воркеров.
	RecordsMissing = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyclone_records_missing_total",
		Help: "Records not accounted for after distributed processing, by cycle",
	}, []string{"cycle"})

	// MergeRejected — артефакты, отклонённые при слиянии.
	MergeRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyclone_merge_rejected_total",
		Help: "Artifacts rejected during merge, by kind",
	}, []string{"kind"})

	// PartitionsTotal — партиции по итоговому статусу.
	PartitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyclone_partitions_total",
		Help: "Partitions processed, by final status",
	}, []string{"status"})

	// DatasetDuration — время обработки датасета.
	DatasetDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cyclone_dataset_duration_seconds",
		Help:    "Wall time to process one dataset, by cycle and mode",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"cycle", "mode"})
)

// APIRequestDuration — время ответа API статуса воркера.
var APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "cyclone_api_request_duration_seconds",
	Help:    "Worker status API latency, by route pattern and status code",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "code"})
