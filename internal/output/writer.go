package output

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
	"github.com/shaiso/Cyclone/internal/ntuple"
)

// chunkSize — число записей потока в одной транзакции записи.
const chunkSize = 4096

// Writer записывает бандлы в файлы.
type Writer struct {
	engine *merge.Engine
	logger *slog.Logger
}

// NewWriter создаёт Writer. engine используется для слияния
// с объектами, уже существующими в файле.
func NewWriter(engine *merge.Engine, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{engine: engine, logger: logger}
}

// WriteBundle записывает бандл в файл path.
// update = false пересоздаёт файл, true — дописывает в существующий.
func (w *Writer) WriteBundle(path string, update bool, b *merge.Bundle) error {
	mode := ntuple.ModeCreate
	if update {
		mode = ntuple.ModeUpdate
	}
	f, err := ntuple.Open(path, mode)
	if err != nil {
		return err
	}

	err = w.writeArtifacts(f, b)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	w.logger.Debug("bundle written", "file", path, "artifacts", b.Len(), "update", update)
	return nil
}

func (w *Writer) writeArtifacts(f *ntuple.File, b *merge.Bundle) error {
	for _, a := range b.Artifacts() {
		if s, ok := a.Value.(*merge.RecordStream); ok {
			if err := appendStream(f, a.Path, a.Name, s.Records); err != nil {
				return fmt.Errorf("stream %s: %w", a.Key(), err)
			}
			continue
		}
		if err := w.PutValue(f, a.Path, a.Name, a.Value); err != nil {
			return fmt.Errorf("object %s: %w", a.Key(), err)
		}
	}
	return nil
}

// PutValue записывает значение; существующий объект с тем же именем
// сливается с новым значением.
func (w *Writer) PutValue(f *ntuple.File, dir, name string, v merge.Value) error {
	existing, err := f.GetObject(dir, name)
	switch {
	case errors.Is(err, ntuple.ErrNotFound):
		return putValue(f, dir, name, v)
	case err != nil:
		return err
	}

	if existing.Kind != v.Kind() {
		w.engine.Reject(merge.Rejection{
			Key:      merge.Key{Path: dir, Name: name},
			Kind:     v.Kind(),
			Expected: existing.Kind,
			Err: fmt.Errorf("%w: %s is %s in file, keeping existing",
				merge.ErrKindMismatch, ntuple.JoinPath(dir, name), existing.Kind),
		})
		return nil
	}

	acc, err := merge.DecodeValue(existing.Kind, existing.Data)
	if err != nil {
		return err
	}
	if err := w.engine.MergeValues(acc, []merge.Value{v}); err != nil {
		return err
	}
	return putValue(f, dir, name, acc)
}

func putValue(f *ntuple.File, dir, name string, v merge.Value) error {
	kind, data, err := merge.EncodeValue(v)
	if err != nil {
		return err
	}
	return f.PutObject(dir, name, ntuple.Object{Kind: kind, Data: data})
}

// appendStream дописывает записи кусками, каждый кусок фиксируется сразу.
func appendStream(f *ntuple.File, dir, name string, recs []domain.Record) error {
	if len(recs) == 0 {
		return f.CreateStream(dir, name)
	}
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}
		if err := f.AppendRecords(dir, name, recs[start:end]); err != nil {
			return err
		}
	}
	return nil
}
