package output

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
	"github.com/shaiso/Cyclone/internal/ntuple"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newEngine() *merge.Engine {
	return merge.New(merge.Config{Logger: quiet()})
}

func records(tag string, n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		out[i] = domain.Record{"src": tag, "i": i}
	}
	return out
}

func hist(contents ...float64) *merge.Histogram {
	h := merge.NewHistogram(len(contents), 0, float64(len(contents)))
	copy(h.Contents, contents)
	h.Entries = int64(len(contents))
	return h
}

func writeOutput(t *testing.T, path string, tree []domain.Record, h *merge.Histogram) {
	t.Helper()
	b := merge.NewBundle()
	require.NoError(t, b.PutStream("Tree", tree))
	require.NoError(t, b.Put(merge.Artifact{Name: "pt", Path: "hists/jets", Value: h}))
	require.NoError(t, NewWriter(newEngine(), quiet()).WriteBundle(path, false, b))
}

func readStream(t *testing.T, path, dir, name string) []domain.Record {
	t.Helper()
	f, err := ntuple.Open(path, ntuple.ModeRead)
	require.NoError(t, err)
	defer f.Close()

	var out []domain.Record
	require.NoError(t, f.ReadRecords(dir, name, 0, -1, func(_ int64, rec domain.Record) error {
		out = append(out, rec)
		return nil
	}))
	return out
}

func readHist(t *testing.T, path, dir, name string) *merge.Histogram {
	t.Helper()
	f, err := ntuple.Open(path, ntuple.ModeRead)
	require.NoError(t, err)
	defer f.Close()

	obj, err := f.GetObject(dir, name)
	require.NoError(t, err)
	v, err := merge.DecodeValue(obj.Kind, obj.Data)
	require.NoError(t, err)
	return v.(*merge.Histogram)
}

func TestFileName(t *testing.T) {
	cfg := &domain.CycleConfig{Name: "ana::FirstCycle", OutputDir: "/out", PostFix: "_v2"}
	ds := &domain.InputDataset{Type: "ttbar", Version: "mc16"}
	assert.Equal(t, "/out/ana.FirstCycle.ttbar.mc16_v2.cyc", FileName(cfg, ds))
}

func TestWriter_UpdateMergesObjectsAndAppendsStreams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.cyc")
	w := NewWriter(newEngine(), quiet())

	first := merge.NewBundle()
	require.NoError(t, first.PutStream("Tree", records("a", 2)))
	require.NoError(t, first.Put(merge.Artifact{Name: "pt", Path: "hists/jets", Value: hist(1, 2, 3)}))
	require.NoError(t, w.WriteBundle(path, false, first))

	second := merge.NewBundle()
	require.NoError(t, second.PutStream("Tree", records("b", 3)))
	require.NoError(t, second.Put(merge.Artifact{Name: "pt", Path: "hists/jets", Value: hist(4, 5, 6)}))
	require.NoError(t, second.Put(merge.Artifact{Name: "pt", Path: "hists", Value: merge.NewCounter()}))
	require.NoError(t, w.WriteBundle(path, true, second))

	assert.Len(t, readStream(t, path, "", "Tree"), 5)
	assert.Equal(t, []float64{5, 7, 9}, readHist(t, path, "hists/jets", "pt").Contents)

	// без update файл пересоздаётся
	require.NoError(t, w.WriteBundle(path, false, second))
	assert.Len(t, readStream(t, path, "", "Tree"), 3)
	assert.Equal(t, []float64{4, 5, 6}, readHist(t, path, "hists/jets", "pt").Contents)
}

func TestFileMerger_ConcatenatesStreamsInInputOrder(t *testing.T) {
	dir := t.TempDir()
	in1 := filepath.Join(dir, "1.cyc")
	in2 := filepath.Join(dir, "2.cyc")
	out := filepath.Join(dir, "merged.cyc")
	writeOutput(t, in1, records("first", 10), hist(1, 2, 3))
	writeOutput(t, in2, records("second", 15), hist(4, 5, 6))

	m := NewFileMerger(MergerConfig{Engine: newEngine(), Logger: quiet(), ChunkSize: 4})
	require.NoError(t, m.AddInput(in1))
	require.NoError(t, m.AddInput(in2))
	require.NoError(t, m.SetOutput(out, MergeOverwrite))

	stats, err := m.Merge()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Inputs)
	assert.Equal(t, int64(25), stats.Records)

	tree := readStream(t, out, "", "Tree")
	require.Len(t, tree, 25)
	for i, rec := range tree {
		if i < 10 {
			assert.Equal(t, "first", rec["src"])
		} else {
			assert.Equal(t, "second", rec["src"])
		}
	}

	h := readHist(t, out, "hists/jets", "pt")
	assert.Equal(t, []float64{5, 7, 9}, h.Contents)
	assert.Equal(t, int64(6), h.Entries)
}

func TestFileMerger_AppendMode(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.cyc")
	out := filepath.Join(dir, "out.cyc")
	writeOutput(t, in, records("x", 3), hist(1, 1))
	writeOutput(t, out, records("y", 2), hist(2, 2))

	m := NewFileMerger(MergerConfig{Engine: newEngine(), Logger: quiet()})
	require.NoError(t, m.AddInput(in))
	require.NoError(t, m.SetOutput(out, MergeAppend))
	_, err := m.Merge()
	require.NoError(t, err)

	assert.Len(t, readStream(t, out, "", "Tree"), 5)
	assert.Equal(t, []float64{3, 3}, readHist(t, out, "hists/jets", "pt").Contents)
}

func TestFileMerger_Errors(t *testing.T) {
	dir := t.TempDir()
	m := NewFileMerger(MergerConfig{Logger: quiet()})

	assert.Error(t, m.AddInput(filepath.Join(dir, "missing.cyc")))
	_, err := m.Merge()
	assert.ErrorIs(t, err, ErrNoInputs)

	in := filepath.Join(dir, "in.cyc")
	writeOutput(t, in, records("x", 1), hist(1))
	require.NoError(t, m.AddInput(in))
	_, err = m.Merge()
	assert.ErrorIs(t, err, ErrNoOutput)

	assert.ErrorIs(t, m.SetOutput("", MergeOverwrite), ErrNoOutput)
	assert.Error(t, m.SetOutput(filepath.Join(dir, "nodir", "out.cyc"), MergeOverwrite))

	require.NoError(t, m.SetOutput(in, MergeAppend))
	_, err = m.Merge()
	assert.ErrorIs(t, err, ErrOutputIsInput)
}

// revisionSource отдаёт одно имя дважды в одном узле,
// как файл с несколькими ревизиями объекта.
type revisionSource struct {
	objects map[string]ntuple.Object
	order   []ntuple.Entry
}

func (s *revisionSource) Walk(fn ntuple.WalkFunc) error {
	for _, e := range s.order {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *revisionSource) GetObject(dir, name string) (ntuple.Object, error) {
	return s.objects[ntuple.JoinPath(dir, name)], nil
}

func (s *revisionSource) ReadRecords(string, string, int64, int64, ntuple.RecordFunc) error {
	return nil
}

func (s *revisionSource) Close() error { return nil }

func TestFileMerger_FirstRevisionWins(t *testing.T) {
	_, data, err := merge.EncodeValue(hist(1, 2))
	require.NoError(t, err)

	src := &revisionSource{
		objects: map[string]ntuple.Object{"h/pt": {Kind: merge.KindHistogram, Data: data}},
		order: []ntuple.Entry{
			{Name: "h", Type: ntuple.EntryNamespace},
			{Dir: "h", Name: "pt", Type: ntuple.EntryObject, Kind: merge.KindHistogram},
			{Dir: "h", Name: "pt", Type: ntuple.EntryObject, Kind: merge.KindHistogram},
		},
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "out.cyc")
	m := NewFileMerger(MergerConfig{
		Engine: newEngine(),
		Logger: quiet(),
		Open:   func(string) (Source, error) { return src, nil },
	})
	require.NoError(t, m.AddInput("virtual"))
	require.NoError(t, m.SetOutput(out, MergeOverwrite))

	stats, err := m.Merge()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.Objects)
	assert.Equal(t, []float64{1, 2}, readHist(t, out, "h", "pt").Contents)
}

func TestWriter_KindMismatchCountsAsRejection(t *testing.T) {
	var rejected []string
	engine := merge.New(merge.Config{
		Logger:   quiet(),
		OnReject: func(kind string) { rejected = append(rejected, kind) },
	})
	w := NewWriter(engine, quiet())
	path := filepath.Join(t.TempDir(), "out.cyc")

	first := merge.NewBundle()
	require.NoError(t, first.Put(merge.Artifact{Name: "pt", Path: "hists", Value: hist(1, 2, 3)}))
	require.NoError(t, w.WriteBundle(path, false, first))

	c := merge.NewCounter()
	c.Add("n", 1)
	second := merge.NewBundle()
	require.NoError(t, second.Put(merge.Artifact{Name: "pt", Path: "hists", Value: c}))
	require.NoError(t, w.WriteBundle(path, true, second))

	assert.Equal(t, []string{merge.KindCounter}, rejected)
	assert.Equal(t, []float64{1, 2, 3}, readHist(t, path, "hists", "pt").Contents)
}
