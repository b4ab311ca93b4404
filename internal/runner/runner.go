// Package runner выполняет цикл над диапазоном записей одного датасета.
//
// Используется и локальным исполнителем контроллера, и удалённым воркером:
// в обоих случаях результат — один бандл с артефактами и статистикой.
package runner

import (
	"context"
	"log/slog"

	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
	"github.com/shaiso/Cyclone/internal/ntuple"
	"github.com/shaiso/Cyclone/internal/weight"
)

// cancelCheckEvery — как часто проверяется отмена контекста.
const cancelCheckEvery = 1024

// Request — задание на обработку диапазона записей.
type Request struct {
	Cycle  cycle.Cycle
	Config *domain.CycleConfig

	// DatasetIndex — индекс датасета в Config.Datasets (уже провалидированного).
	DatasetIndex int

	// First, Count — глобальный диапазон записей.
	First int64
	Count int64

	Logger *slog.Logger
}

// Run выполняет BeginInputData → (BeginInputFile → Execute)* → EndInputData.
//
// Ошибки записей (SkipRecord) и файлов (SkipFile) поглощаются и
// учитываются в статистике. Ошибка тяжелее SkipFile прерывает обработку
// и возвращается как *domain.Fault.
func Run(ctx context.Context, req Request) (*merge.Bundle, error) {
	ds := &req.Config.Datasets[req.DatasetIndex]
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("dataset", ds.Key(), "first", req.First, "count", req.Count)

	calc, err := weight.NewCalculator(*ds, req.Config.Datasets, req.Config.TargetLumi)
	if err != nil {
		return nil, asFault(err, domain.SkipDataset, "weight")
	}

	var streams, persistent []string
	for _, s := range ds.Streams {
		if s.Role.Has(domain.RoleInput) || s.Role.Has(domain.RolePersistent) {
			streams = append(streams, s.Name)
		}
		if s.Role.Has(domain.RolePersistent) {
			persistent = append(persistent, s.Name)
		}
	}

	chain := ntuple.NewChain(ds.Files, streams)
	defer chain.Close()
	outputs := ntuple.NewOutputs()

	if su, ok := req.Cycle.(cycle.StreamUser); ok {
		su.AttachStreams(chain, outputs)
		defer su.DetachStreams()
	}
	if p, ok := req.Cycle.(cycle.Producer); ok {
		p.ResetArtifacts()
	}

	if err := req.Cycle.BeginInputData(ds); err != nil {
		return nil, asFault(err, domain.SkipDataset, "BeginInputData")
	}

	stats := &merge.Statistics{}
	end := req.First + req.Count
	if end > chain.Len() {
		end = chain.Len()
	}

	for i := req.First; i < end; i++ {
		if (i-req.First)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, domain.WrapFault(domain.StopExecution, err, "cancelled")
			}
		}

		newFile, err := chain.ReadRecord(i)
		if err == nil && newFile {
			err = req.Cycle.BeginInputFile(ds)
			if err != nil {
				err = asFault(err, domain.SkipDataset, "BeginInputFile")
			}
		} else if err != nil {
			err = domain.WrapFault(domain.SkipFile, err, "read record")
		}

		if err == nil {
			err = processRecord(req.Cycle, calc, chain, outputs, persistent, i)
		}
		stats.Processed++
		if err == nil {
			continue
		}

		sev := domain.SeverityOf(err, domain.SkipDataset)
		switch {
		case sev <= domain.SkipRecord:
			stats.Skipped++
			logger.Debug("record skipped", "index", i, "error", err)

		case sev == domain.SkipFile:
			fileEnd := chain.FileEnd(i)
			if fileEnd > end {
				fileEnd = end
			}
			rest := fileEnd - i - 1
			stats.Skipped += rest + 1
			stats.Processed += rest
			logger.Warn("file skipped",
				"file", chain.FilePath(i),
				"index", i,
				"records_skipped", rest+1,
				"error", err,
			)
			i = fileEnd - 1

		default:
			logger.Error("dataset processing aborted", "index", i, "severity", sev.String(), "error", err)
			return nil, asFault(err, domain.SkipDataset, "Execute")
		}
	}

	if err := req.Cycle.EndInputData(ds); err != nil {
		return nil, asFault(err, domain.SkipDataset, "EndInputData")
	}

	bundle, err := buildBundle(req.Cycle, outputs, stats)
	if err != nil {
		return nil, domain.WrapFault(domain.SkipDataset, err, "collect artifacts")
	}

	logger.Info("partition processed", "processed", stats.Processed, "skipped", stats.Skipped)
	return bundle, nil
}

func processRecord(c cycle.Cycle, calc *weight.Calculator, chain *ntuple.Chain,
	outputs *ntuple.Outputs, persistent []string, index int64) error {
	w, err := calc.Weight(chain)
	if err != nil {
		return err
	}

	ev := cycle.NewEvent(index, chain.FilePath(index), chain)
	if err := c.Execute(ev, w); err != nil {
		return err
	}

	for _, s := range outputs.Streams() {
		if !outputs.HasFields(s) {
			continue
		}
		if err := outputs.AppendCurrentRecord(s); err != nil {
			return domain.WrapFault(domain.SkipDataset, err, "fill output")
		}
	}
	for _, s := range persistent {
		if rec := chain.Current(s); rec != nil {
			outputs.AppendRecord(s, rec)
		}
	}
	return nil
}

func buildBundle(c cycle.Cycle, outputs *ntuple.Outputs, stats *merge.Statistics) (*merge.Bundle, error) {
	b := merge.NewBundle()
	if err := b.Put(merge.Artifact{Name: merge.StatisticsName, Value: stats}); err != nil {
		return nil, err
	}
	for _, s := range outputs.Streams() {
		if err := b.PutStream(s, outputs.Records(s)); err != nil {
			return nil, err
		}
	}
	if p, ok := c.(cycle.Producer); ok {
		for _, a := range p.Artifacts() {
			if err := b.Put(a); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

// asFault гарантирует, что ошибка несёт тяжесть.
func asFault(err error, fallback domain.Severity, stage string) error {
	if domain.SeverityOf(err, domain.SeverityNone) != domain.SeverityNone {
		return err
	}
	return domain.WrapFault(fallback, err, stage)
}

// BeginCycle вызывает BeginCycle с тяжестью SkipCycle для обычных ошибок.
func BeginCycle(c cycle.Cycle) error {
	if err := c.BeginCycle(); err != nil {
		return asFault(err, domain.SkipCycle, "BeginCycle")
	}
	return nil
}

// EndCycle вызывает EndCycle с тяжестью SkipCycle для обычных ошибок.
func EndCycle(c cycle.Cycle) error {
	if err := c.EndCycle(); err != nil {
		return asFault(err, domain.SkipCycle, "EndCycle")
	}
	return nil
}
