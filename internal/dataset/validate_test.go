package dataset

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/ntuple"
)

var errUnreadable = errors.New("unreadable")

type fakeCounter struct {
	counts map[string]map[string]int64
	calls  int
}

func (f *fakeCounter) CountRecords(path string, streams []string) (map[string]int64, error) {
	f.calls++
	c, ok := f.counts[path]
	if !ok {
		return nil, errUnreadable
	}
	return c, nil
}

func newValidator(c Counter) *Validator {
	return NewValidator(Config{Counter: c, Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
}

func syncedDataset(files ...string) domain.InputDataset {
	d := domain.InputDataset{
		Type:       "ttbar",
		Version:    "1",
		MaxRecords: -1,
		Streams: []domain.StreamDescriptor{
			{Name: "Events", Role: domain.RoleInput | domain.RoleSynchronized},
			{Name: "Truth", Role: domain.RolePersistent | domain.RoleSynchronized},
			{Name: "Meta", Role: domain.RoleInput},
			{Name: "Out", Role: domain.RoleOutput},
		},
	}
	for _, f := range files {
		d.Files = append(d.Files, domain.FileEntry{Path: f})
	}
	return d
}

func TestValidate_DropsMismatchedAndUnreadable(t *testing.T) {
	counter := &fakeCounter{counts: map[string]map[string]int64{
		"a": {"Events": 10, "Truth": 10, "Meta": 1},
		"b": {"Events": 10, "Truth": 9, "Meta": 1},
		"d": {"Events": 5, "Meta": 1},
		"e": {"Events": 7, "Truth": 7, "Meta": 3},
	}}
	out, dropped, err := newValidator(counter).Validate(syncedDataset("a", "b", "c", "d", "e"))
	require.NoError(t, err)

	require.Len(t, out.Files, 2)
	assert.Equal(t, "a", out.Files[0].Path)
	assert.Equal(t, int64(10), out.Files[0].Records)
	assert.Equal(t, "e", out.Files[1].Path)
	assert.Equal(t, int64(17), out.TotalRecords)
	assert.Equal(t, int64(-1), out.MaxRecords)

	require.Len(t, dropped, 3)
	assert.ErrorIs(t, dropped[0].Err, ErrStreamMismatch)
	assert.ErrorIs(t, dropped[1].Err, errUnreadable)
	assert.ErrorIs(t, dropped[2].Err, ntuple.ErrNotFound)
}

func TestValidate_NoFilesSurvive(t *testing.T) {
	_, dropped, err := newValidator(&fakeCounter{}).Validate(syncedDataset("x", "y"))
	assert.ErrorIs(t, err, ErrNoFiles)
	assert.Len(t, dropped, 2)
}

func TestValidate_NoInputStreams(t *testing.T) {
	d := domain.InputDataset{Type: "x", Files: []domain.FileEntry{{Path: "a"}}}
	_, _, err := newValidator(&fakeCounter{}).Validate(d)
	assert.ErrorIs(t, err, ErrNoInputStreams)
}

func TestValidate_ClampsRange(t *testing.T) {
	counter := &fakeCounter{counts: map[string]map[string]int64{
		"a": {"Events": 60, "Truth": 60, "Meta": 0},
		"b": {"Events": 40, "Truth": 40, "Meta": 0},
	}}
	tests := []struct {
		name      string
		skip, max int64
		wantMax   int64
	}{
		{"over the end", 80, 50, 20},
		{"skip past total", 120, 10, 0},
		{"skip equals total", 100, -1, 0},
		{"all records", 10, -1, -1},
		{"fits", 10, 50, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := syncedDataset("a", "b")
			d.SkipRecords, d.MaxRecords = tt.skip, tt.max

			out, _, err := newValidator(counter).Validate(d)
			require.NoError(t, err)
			assert.Equal(t, int64(100), out.TotalRecords)
			assert.Equal(t, tt.wantMax, out.MaxRecords)

			_, count := out.RecordRange()
			if tt.wantMax >= 0 {
				assert.Equal(t, tt.wantMax, count)
			}
		})
	}
}

func TestValidate_UsesCacheForCacheableDatasets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.cyc")
	f, err := ntuple.Open(path, ntuple.ModeCreate)
	require.NoError(t, err)
	recs := []domain.Record{{"x": 1}, {"x": 2}, {"x": 3}}
	require.NoError(t, f.AppendRecords("", "Events", recs))
	require.NoError(t, f.AppendRecords("", "Truth", recs))
	require.NoError(t, f.AppendRecords("", "Meta", recs[:1]))
	require.NoError(t, f.Close())

	cache, err := OpenCache(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	calls := 0
	counter := CounterFunc(func(p string, s []string) (map[string]int64, error) {
		calls++
		return ntuple.CountRecords(p, s)
	})
	v := NewValidator(Config{Counter: counter, Cache: cache, Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})

	d := syncedDataset(path)
	d.Cacheable = true

	out, _, err := v.Validate(d)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.TotalRecords)

	out, _, err = v.Validate(d)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.TotalRecords)
	assert.Equal(t, 1, calls)

	d.Cacheable = false
	_, _, err = v.Validate(d)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
