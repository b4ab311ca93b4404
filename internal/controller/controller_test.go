package controller

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
	"github.com/shaiso/Cyclone/internal/ntuple"
	"github.com/shaiso/Cyclone/internal/pool"
)

// probe — тестовый цикл: гистограмма x и выходной поток Out.
// Ошибки внедряются через свойства.
type probe struct {
	cycle.Base

	x   float64
	out float64

	failAt       int64
	failSeverity int
	failBegin    bool
}

func newProbe() cycle.Cycle {
	c := &probe{Base: cycle.NewBase(), failAt: -1}
	c.DeclareProperty("FailAt", &c.failAt)
	c.DeclareProperty("FailSeverity", &c.failSeverity)
	c.DeclareProperty("FailBeginCycle", &c.failBegin)
	return c
}

func (c *probe) BeginCycle() error {
	if c.failBegin {
		return errors.New("begin cycle failed")
	}
	return nil
}

func (c *probe) BeginInputData(*domain.InputDataset) error {
	c.Book("x", "hists", 10, 0, 100)
	if err := c.ConnectInputField("Events", "x", &c.x); err != nil {
		return err
	}
	return c.DeclareOutputField(&c.out, "x", "Out")
}

func (c *probe) Execute(ev *cycle.Event, w float64) error {
	if ev.Index == c.failAt {
		return domain.NewFault(domain.Severity(c.failSeverity), "injected")
	}
	c.out = c.x
	c.Hist("x", "hists").Fill(c.x, w)
	return nil
}

func registry() *cycle.Registry {
	r := cycle.NewRegistry()
	r.Register("Probe", newProbe)
	return r
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func writeEvents(t *testing.T, path string, n int) domain.FileEntry {
	t.Helper()
	f, err := ntuple.Open(path, ntuple.ModeCreate)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	recs := make([]domain.Record, n)
	for i := range recs {
		recs[i] = domain.Record{"x": float64(i)}
	}
	if err := f.AppendRecords("", "Events", recs); err != nil {
		t.Fatalf("append: %v", err)
	}
	return domain.FileEntry{Path: path}
}

func dataset(typ, version string, files ...domain.FileEntry) domain.InputDataset {
	return domain.InputDataset{
		Type:    typ,
		Version: version,
		Lumi:    10,
		Files:   files,
		Streams: []domain.StreamDescriptor{
			{Name: "Events", Roles: []string{"input", "synchronized"}},
			{Name: "Out", Roles: []string{"output"}},
		},
		MaxRecords: -1,
	}
}

func probeCycle(out string, datasets ...domain.InputDataset) domain.CycleConfig {
	return domain.CycleConfig{
		Name:       "Probe",
		TargetLumi: 20,
		OutputDir:  out,
		Datasets:   datasets,
	}
}

func newController(job *domain.JobConfig, opener pool.Opener) *Controller {
	return New(Config{Job: job, Cycles: registry(), Pools: opener, Logger: quiet()})
}

func inproc() pool.Opener {
	return pool.NewOpener(pool.OpenerConfig{Cycles: registry(), Logger: quiet()})
}

func streamLen(t *testing.T, path, name string) int64 {
	t.Helper()
	f, err := ntuple.Open(path, ntuple.ModeRead)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	n, err := f.StreamLen("", name)
	if err != nil {
		t.Fatalf("stream %s: %v", name, err)
	}
	return n
}

func histIntegral(t *testing.T, path string) float64 {
	t.Helper()
	f, err := ntuple.Open(path, ntuple.ModeRead)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	obj, err := f.GetObject("hists", "x")
	if err != nil {
		t.Fatalf("get hist: %v", err)
	}
	v, err := merge.DecodeValue(obj.Kind, obj.Data)
	if err != nil {
		t.Fatalf("decode hist: %v", err)
	}
	return v.(*merge.Histogram).Integral()
}

func TestController_States(t *testing.T) {
	c := newController(&domain.JobConfig{}, nil)
	if c.State() != domain.ControllerIdle {
		t.Fatalf("expected IDLE, got %s", c.State())
	}
	if _, err := c.ExecuteNext(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}

	err := c.Initialize()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if c.State() != domain.ControllerFailed {
		t.Fatalf("expected FAILED, got %s", c.State())
	}
	if err := c.Initialize(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestController_LocalRunArrangesAndUpdatesOutputs(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	a := writeEvents(t, filepath.Join(in, "a.cyc"), 10)
	b := writeEvents(t, filepath.Join(in, "b.cyc"), 5)
	cf := writeEvents(t, filepath.Join(in, "c.cyc"), 5)

	job := &domain.JobConfig{Name: "local", Cycles: []domain.CycleConfig{probeCycle(out,
		dataset("ttbar", "v1", a),
		dataset(domain.DataTypeData, "2024", b),
		dataset("ttbar", "v1", cf),
	)}}

	c := newController(job, nil)
	if err := c.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	got := job.Cycles[0].Datasets
	if got[0].Type != "ttbar" || got[1].Type != "ttbar" || got[2].Type != domain.DataTypeData {
		t.Fatalf("datasets not arranged: %s %s %s", got[0].Key(), got[1].Key(), got[2].Key())
	}

	reports, err := c.ExecuteAll(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if c.State() != domain.ControllerCompleted {
		t.Fatalf("expected COMPLETED, got %s", c.State())
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}

	run := reports[0].Run
	if run.Status != domain.CycleRunSucceeded || run.Processed != 20 || run.Expected != 20 {
		t.Fatalf("unexpected run: %+v", run)
	}

	// два ttbar датасета пишут в один файл
	ttbar := filepath.Join(out, "Probe.ttbar.v1.cyc")
	if n := streamLen(t, ttbar, "Out"); n != 15 {
		t.Errorf("ttbar Out: expected 15 records, got %d", n)
	}
	// вес симуляции 20 / (10 + 10) = 1
	if v := histIntegral(t, ttbar); v != 15 {
		t.Errorf("ttbar hist integral: expected 15, got %v", v)
	}
	if n := streamLen(t, filepath.Join(out, "Probe.data.2024.cyc"), "Out"); n != 5 {
		t.Errorf("data Out: expected 5 records, got %d", n)
	}

	if _, err := c.ExecuteNext(context.Background()); !errors.Is(err, ErrNoMoreCycles) {
		t.Fatalf("expected ErrNoMoreCycles, got %v", err)
	}
}

func TestController_DistributedMatchesLocal(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	a := writeEvents(t, filepath.Join(in, "a.cyc"), 7)
	b := writeEvents(t, filepath.Join(in, "b.cyc"), 6)

	cfg := probeCycle(out, dataset(domain.DataTypeData, "2024", a, b))
	cfg.Mode = domain.RunModeDistributed
	cfg.Endpoint = "inproc://3"
	job := &domain.JobConfig{Name: "dist", Cycles: []domain.CycleConfig{cfg}}

	c := newController(job, inproc())
	defer c.Close()
	if err := c.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	reports, err := c.ExecuteAll(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	ds := reports[0].Datasets[0]
	if ds.Status != DatasetProcessed || ds.Processed != 13 || ds.Missing != 0 {
		t.Fatalf("unexpected dataset report: %+v", ds)
	}
	if len(ds.Workers) != 3 {
		t.Errorf("expected 3 worker logs, got %d", len(ds.Workers))
	}

	path := filepath.Join(out, "Probe.data.2024.cyc")
	if n := streamLen(t, path, "Out"); n != 13 {
		t.Errorf("expected 13 records, got %d", n)
	}
	if v := histIntegral(t, path); v != 13 {
		t.Errorf("expected integral 13, got %v", v)
	}

	// записи идут в порядке воркеров
	f, err := ntuple.Open(path, ntuple.ModeRead)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var xs []float64
	err = f.ReadRecords("", "Out", 0, -1, func(_ int64, rec domain.Record) error {
		x, _ := rec["x"].(float64)
		xs = append(xs, x)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1, 2, 3, 4, 5, 6, 0, 1, 2, 3, 4, 5}
	for i := range want {
		if xs[i] != want[i] {
			t.Fatalf("record order: got %v, want %v", xs, want)
		}
	}
}

func TestController_FailedWorkerReportsMissingRecords(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	a := writeEvents(t, filepath.Join(in, "a.cyc"), 9)

	cfg := probeCycle(out, dataset(domain.DataTypeData, "2024", a))
	cfg.Mode = domain.RunModeDistributed
	cfg.Endpoint = "inproc://3"
	// запись 4 принадлежит второму воркеру (3..5)
	cfg.Properties = []domain.Property{
		{Name: "FailAt", Values: []string{"4"}},
		{Name: "FailSeverity", Values: []string{"3"}},
	}
	job := &domain.JobConfig{Name: "dist", Cycles: []domain.CycleConfig{cfg}}

	c := newController(job, inproc())
	defer c.Close()
	if err := c.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	reports, err := c.ExecuteAll(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	ds := reports[0].Datasets[0]
	if ds.Status != DatasetProcessed {
		t.Fatalf("dataset should survive a partial failure: %+v", ds)
	}
	if ds.Processed != 6 || ds.Missing != 3 || ds.Expected != 9 {
		t.Errorf("unexpected accounting: processed=%d missing=%d expected=%d", ds.Processed, ds.Missing, ds.Expected)
	}
	if ds.Workers[1].Err == nil || ds.Workers[1].Log == "" {
		t.Errorf("failed worker must keep its log: %+v", ds.Workers[1])
	}
}

func TestController_SeverityPropagation(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	a := writeEvents(t, filepath.Join(in, "a.cyc"), 5)
	b := writeEvents(t, filepath.Join(in, "b.cyc"), 5)
	missing := domain.FileEntry{Path: filepath.Join(in, "missing.cyc")}

	skipDataset := probeCycle(out,
		dataset("broken", "1", missing),
		dataset(domain.DataTypeData, "1", a),
	)

	skipCycle := probeCycle(out, dataset(domain.DataTypeData, "2", a))
	skipCycle.Properties = []domain.Property{{Name: "FailBeginCycle", Values: []string{"true"}}}

	stop := probeCycle(out, dataset(domain.DataTypeData, "3", b))
	stop.Properties = []domain.Property{
		{Name: "FailAt", Values: []string{"2"}},
		{Name: "FailSeverity", Values: []string{"5"}},
	}

	never := probeCycle(out, dataset(domain.DataTypeData, "4", b))

	job := &domain.JobConfig{Name: "severity", Cycles: []domain.CycleConfig{skipDataset, skipCycle, stop, never}}
	c := newController(job, nil)
	if err := c.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	rep, err := c.ExecuteNext(context.Background())
	if err != nil {
		t.Fatalf("cycle 0: %v", err)
	}
	if rep.Datasets[0].Status != DatasetSkipped || rep.Datasets[1].Status != DatasetProcessed {
		t.Errorf("cycle 0: unexpected datasets %+v", rep.Datasets)
	}

	rep, err = c.ExecuteNext(context.Background())
	if err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	if rep.Run.Status != domain.CycleRunSkipped {
		t.Errorf("cycle 1: expected SKIPPED, got %s", rep.Run.Status)
	}

	rep, err = c.ExecuteNext(context.Background())
	if err == nil {
		t.Fatal("cycle 2: expected fatal error")
	}
	if domain.SeverityOf(err, domain.SeverityNone) != domain.StopExecution {
		t.Errorf("cycle 2: expected STOP_EXECUTION, got %v", err)
	}
	if rep.Run.Status != domain.CycleRunFailed {
		t.Errorf("cycle 2: expected FAILED, got %s", rep.Run.Status)
	}
	if c.State() != domain.ControllerFailed {
		t.Errorf("expected FAILED controller, got %s", c.State())
	}

	if _, err := c.ExecuteNext(context.Background()); !errors.Is(err, ErrFailed) {
		t.Errorf("expected ErrFailed, got %v", err)
	}
}

func TestController_NoInputStreamsSkipsDataset(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	a := writeEvents(t, filepath.Join(in, "a.cyc"), 3)

	ds := dataset(domain.DataTypeData, "1", a)
	ds.Streams = ds.Streams[1:]
	job := &domain.JobConfig{Name: "streams", Cycles: []domain.CycleConfig{probeCycle(out, ds)}}

	c := newController(job, nil)
	if err := c.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	reports, err := c.ExecuteAll(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if d := reports[0].Datasets[0]; d.Status != DatasetSkipped || d.Err != nil {
		t.Errorf("expected quiet skip, got %+v", d)
	}
}

type memRecorder struct {
	mu       sync.Mutex
	started  int
	finished []domain.CycleRun
}

func (r *memRecorder) Start(_ context.Context, run *domain.CycleRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
	return nil
}

func (r *memRecorder) Finish(_ context.Context, run *domain.CycleRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, *run)
	return nil
}

func TestController_RecordsHistory(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	a := writeEvents(t, filepath.Join(in, "a.cyc"), 4)

	job := &domain.JobConfig{Name: "history", Cycles: []domain.CycleConfig{
		probeCycle(out, dataset(domain.DataTypeData, "1", a)),
	}}
	rec := &memRecorder{}
	c := New(Config{Job: job, Cycles: registry(), Recorder: rec, Logger: quiet()})
	if err := c.Initialize(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ExecuteAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	if rec.started != 1 || len(rec.finished) != 1 {
		t.Fatalf("expected one recorded run, got %d/%d", rec.started, len(rec.finished))
	}
	run := rec.finished[0]
	if run.Job != "history" || run.Processed != 4 || run.FinishedAt == nil {
		t.Errorf("unexpected run: %+v", run)
	}
}
