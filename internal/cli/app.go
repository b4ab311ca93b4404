package cli

import (
	"io"
	"log/slog"

	"github.com/shaiso/Cyclone/internal/config"
	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/merge"
	"github.com/shaiso/Cyclone/internal/telemetry"
)

// App — общие зависимости команд.
type App struct {
	Env    config.Env
	Out    *Output
	Logger *slog.Logger

	// LogOutput — куда пишут логгеры, созданные командами (stderr).
	LogOutput io.Writer

	// Cycles — реестр циклов, доступных заданиям.
	Cycles *cycle.Registry
}

// newMergeEngine возвращает движок слияния со стандартным реестром
// и счётчиком отклонённых артефактов.
func newMergeEngine(logger *slog.Logger) *merge.Engine {
	return merge.New(merge.Config{
		Registry: merge.DefaultRegistry(),
		Logger:   logger,
		OnReject: func(kind string) {
			telemetry.MergeRejected.WithLabelValues(kind).Inc()
		},
	})
}
