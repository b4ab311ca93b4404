package domain

// ControllerState — состояние контроллера выполнения.
//
// Жизненный цикл:
//
//	IDLE → INITIALIZED → RUNNING → COMPLETED
//	                             ↘ FAILED
type ControllerState string

const (
	ControllerIdle        ControllerState = "IDLE"
	ControllerInitialized ControllerState = "INITIALIZED"
	ControllerRunning     ControllerState = "RUNNING"
	ControllerCompleted   ControllerState = "COMPLETED"
	ControllerFailed      ControllerState = "FAILED"
)

// IsTerminal возвращает true для COMPLETED и FAILED.
func (s ControllerState) IsTerminal() bool {
	return s == ControllerCompleted || s == ControllerFailed
}

// CycleRunStatus — статус выполнения одного цикла.
type CycleRunStatus string

const (
	CycleRunRunning   CycleRunStatus = "RUNNING"
	CycleRunSucceeded CycleRunStatus = "SUCCEEDED"

	// CycleRunSkipped — цикл прерван ошибкой уровня SkipCycle.
	CycleRunSkipped CycleRunStatus = "SKIPPED"
	CycleRunFailed  CycleRunStatus = "FAILED"
)

// PartitionStatus — статус партиции в пуле воркеров.
//
// Жизненный цикл:
//
//	QUEUED → RUNNING → SUCCEEDED
//	                 ↘ FAILED
type PartitionStatus string

const (
	PartitionQueued    PartitionStatus = "QUEUED"
	PartitionRunning   PartitionStatus = "RUNNING"
	PartitionSucceeded PartitionStatus = "SUCCEEDED"
	PartitionFailed    PartitionStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s PartitionStatus) IsTerminal() bool {
	switch s {
	case PartitionSucceeded, PartitionFailed:
		return true
	default:
		return false
	}
}
