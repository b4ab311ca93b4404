package domain

import (
	"errors"
	"fmt"
)

// Severity — тяжесть ошибки, сигнализированной циклом.
// Порядок значимый: чем больше значение, тем шире область прерывания.
type Severity int

const (
	// SeverityNone — ошибки нет.
	SeverityNone Severity = iota

	// SkipRecord — запись отбрасывается, обработка продолжается.
	SkipRecord

	// SkipFile — прерывается текущий файл датасета.
	SkipFile

	// SkipDataset — прерывается текущий датасет.
	SkipDataset

	// SkipCycle — прерывается текущий цикл.
	SkipCycle

	// StopExecution — фатальная ошибка, весь запуск завершается.
	StopExecution
)

// String возвращает имя уровня.
func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "NONE"
	case SkipRecord:
		return "SKIP_RECORD"
	case SkipFile:
		return "SKIP_FILE"
	case SkipDataset:
		return "SKIP_DATASET"
	case SkipCycle:
		return "SKIP_CYCLE"
	case StopExecution:
		return "STOP_EXECUTION"
	default:
		return fmt.Sprintf("SEVERITY(%d)", int(s))
	}
}

// Fault — ошибка с уровнем тяжести.
type Fault struct {
	Severity Severity
	Message  string
	Err      error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		if f.Message == "" {
			return fmt.Sprintf("%s: %v", f.Severity, f.Err)
		}
		return fmt.Sprintf("%s: %s: %v", f.Severity, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Severity, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// NewFault создаёт Fault с форматированным сообщением.
func NewFault(sev Severity, format string, args ...any) *Fault {
	return &Fault{Severity: sev, Message: fmt.Sprintf(format, args...)}
}

// WrapFault оборачивает ошибку с указанным уровнем.
func WrapFault(sev Severity, err error, msg string) *Fault {
	return &Fault{Severity: sev, Message: msg, Err: err}
}

// SeverityOf определяет уровень ошибки.
// Ошибки без Fault в цепочке получают уровень fallback.
func SeverityOf(err error, fallback Severity) Severity {
	if err == nil {
		return SeverityNone
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Severity
	}
	return fallback
}
