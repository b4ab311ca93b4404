package output

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
	"github.com/shaiso/Cyclone/internal/ntuple"
)

// MergeMode — режим открытия выходного файла FileMerger.
type MergeMode int

const (
	// MergeOverwrite — выходной файл создаётся заново.
	MergeOverwrite MergeMode = iota

	// MergeAppend — входные файлы дописываются в существующий выход.
	MergeAppend
)

// Source — входной файл FileMerger.
type Source interface {
	Walk(fn ntuple.WalkFunc) error
	GetObject(dir, name string) (ntuple.Object, error)
	ReadRecords(dir, name string, first, n int64, fn ntuple.RecordFunc) error
	Close() error
}

// OpenFunc открывает входной файл.
type OpenFunc func(path string) (Source, error)

// MergerConfig — настройки FileMerger.
type MergerConfig struct {
	Engine *merge.Engine
	Logger *slog.Logger

	// Open открывает входные файлы, по умолчанию ntuple.Open на чтение.
	Open OpenFunc

	// ChunkSize — записей потока на одну запись в выход.
	ChunkSize int
}

// MergeStats — итог работы FileMerger.
type MergeStats struct {
	Inputs     int
	Streams    int
	Records    int64
	Objects    int
	Duplicates int
}

// FileMerger объединяет выходные файлы нескольких запусков в один.
type FileMerger struct {
	writer *Writer
	logger *slog.Logger
	open   OpenFunc
	chunk  int

	inputs []string
	output string
	mode   MergeMode
}

// NewFileMerger создаёт FileMerger.
func NewFileMerger(cfg MergerConfig) *FileMerger {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Engine == nil {
		cfg.Engine = merge.New(merge.Config{Logger: cfg.Logger})
	}
	if cfg.Open == nil {
		cfg.Open = func(path string) (Source, error) {
			return ntuple.Open(path, ntuple.ModeRead)
		}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunkSize
	}
	return &FileMerger{
		writer: NewWriter(cfg.Engine, cfg.Logger),
		logger: cfg.Logger,
		open:   cfg.Open,
		chunk:  cfg.ChunkSize,
	}
}

// AddInput добавляет входной файл. Файл должен открываться.
func (m *FileMerger) AddInput(path string) error {
	src, err := m.open(path)
	if err != nil {
		return fmt.Errorf("add input: %w", err)
	}
	if err := src.Close(); err != nil {
		return fmt.Errorf("add input: %w", err)
	}
	m.inputs = append(m.inputs, path)
	return nil
}

// SetOutput задаёт выходной файл и режим.
func (m *FileMerger) SetOutput(path string, mode MergeMode) error {
	if path == "" {
		return ErrNoOutput
	}
	if dir := filepath.Dir(path); dir != "" {
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			return fmt.Errorf("set output: directory %q does not exist", dir)
		}
	}
	m.output = path
	m.mode = mode
	return nil
}

// Merge обходит каждый входной файл в глубину и переносит его содержимое в выход:
//   - поток дописывается к одноимённому потоку выхода или копируется целиком
//   - объект сливается с одноимённым объектом выхода или записывается новым
//   - пространства имён создаются по мере необходимости
//
// Повторное имя в одном узле входного файла считается ревизией того же
// объекта: берётся первое вхождение.
func (m *FileMerger) Merge() (MergeStats, error) {
	var stats MergeStats
	if len(m.inputs) == 0 {
		return stats, ErrNoInputs
	}
	if m.output == "" {
		return stats, ErrNoOutput
	}
	outAbs, _ := filepath.Abs(m.output)
	for _, in := range m.inputs {
		if inAbs, _ := filepath.Abs(in); inAbs == outAbs {
			return stats, fmt.Errorf("%w: %s", ErrOutputIsInput, in)
		}
	}

	mode := ntuple.ModeCreate
	if m.mode == MergeAppend {
		mode = ntuple.ModeUpdate
	}
	out, err := ntuple.Open(m.output, mode)
	if err != nil {
		return stats, err
	}

	for _, in := range m.inputs {
		if err = m.mergeFile(out, in, &stats); err != nil {
			break
		}
		stats.Inputs++
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return stats, err
	}

	m.logger.Info("files merged",
		"output", m.output,
		"inputs", stats.Inputs,
		"streams", stats.Streams,
		"records", stats.Records,
		"objects", stats.Objects,
	)
	return stats, nil
}

func (m *FileMerger) mergeFile(out *ntuple.File, path string, stats *MergeStats) error {
	src, err := m.open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer src.Close()

	// Сначала собираем дерево: чтение содержимого идёт отдельными транзакциями.
	var entries []ntuple.Entry
	if err := src.Walk(func(e ntuple.Entry) error {
		entries = append(entries, e)
		return nil
	}); err != nil {
		return fmt.Errorf("walk %s: %w", path, err)
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		key := e.Path()
		if seen[key] {
			stats.Duplicates++
			m.logger.Debug("skipping later revision", "file", path, "entry", key)
			continue
		}
		seen[key] = true

		switch e.Type {
		case ntuple.EntryNamespace:
			if err := out.MkdirAll(key); err != nil {
				return err
			}

		case ntuple.EntryStream:
			n, err := m.copyStream(src, out, e)
			if err != nil {
				return fmt.Errorf("stream %s from %s: %w", key, path, err)
			}
			stats.Streams++
			stats.Records += n

		case ntuple.EntryObject:
			obj, err := src.GetObject(e.Dir, e.Name)
			if err != nil {
				return err
			}
			v, err := merge.DecodeValue(obj.Kind, obj.Data)
			if err != nil {
				return fmt.Errorf("object %s from %s: %w", key, path, err)
			}
			if err := m.writer.PutValue(out, e.Dir, e.Name, v); err != nil {
				return fmt.Errorf("object %s from %s: %w", key, path, err)
			}
			stats.Objects++
		}
	}
	return nil
}

// copyStream дописывает поток кусками; каждый кусок сразу фиксируется в выходе.
func (m *FileMerger) copyStream(src Source, out *ntuple.File, e ntuple.Entry) (int64, error) {
	if err := out.CreateStream(e.Dir, e.Name); err != nil {
		return 0, err
	}

	var copied int64
	buf := make([]domain.Record, 0, m.chunk)
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := out.AppendRecords(e.Dir, e.Name, buf); err != nil {
			return err
		}
		copied += int64(len(buf))
		buf = buf[:0]
		return nil
	}

	for first := int64(0); ; first += int64(m.chunk) {
		read := 0
		err := src.ReadRecords(e.Dir, e.Name, first, int64(m.chunk), func(_ int64, rec domain.Record) error {
			buf = append(buf, rec)
			read++
			return nil
		})
		if err != nil {
			return copied, err
		}
		if err := flush(); err != nil {
			return copied, err
		}
		if read < m.chunk {
			break
		}
	}
	return copied, nil
}
