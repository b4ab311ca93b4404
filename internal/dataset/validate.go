package dataset

import (
	"fmt"
	"log/slog"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/ntuple"
)

// Counter возвращает длины потоков файла.
type Counter interface {
	CountRecords(path string, streams []string) (map[string]int64, error)
}

// CounterFunc — адаптер функции к Counter.
type CounterFunc func(path string, streams []string) (map[string]int64, error)

func (f CounterFunc) CountRecords(path string, streams []string) (map[string]int64, error) {
	return f(path, streams)
}

// Config — настройки Validator.
type Config struct {
	// Counter — источник длин потоков, по умолчанию ntuple.CountRecords.
	Counter Counter

	// Cache — кеш для датасетов с Cacheable (может быть nil).
	Cache  *Cache
	Logger *slog.Logger
}

// Validator проверяет файлы датасетов.
type Validator struct {
	counter Counter
	cache   *Cache
	logger  *slog.Logger
}

// Dropped — файл, исключённый из датасета.
type Dropped struct {
	Path string
	Err  error
}

// NewValidator создаёт Validator.
func NewValidator(cfg Config) *Validator {
	if cfg.Counter == nil {
		cfg.Counter = CounterFunc(ntuple.CountRecords)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Validator{
		counter: cfg.Counter,
		cache:   cfg.Cache,
		logger:  cfg.Logger,
	}
}

// Validate проверяет файлы датасета и возвращает его копию.
//
// Файл исключается, если его нельзя открыть, в нём нет объявленного
// входного потока или его синхронизированные потоки имеют разную длину.
// Ошибка возвращается, только если не осталось ни одного файла.
func (v *Validator) Validate(ds domain.InputDataset) (domain.InputDataset, []Dropped, error) {
	out := ds.Clone()
	logger := v.logger.With("dataset", ds.Key())

	var streams, synced []string
	for _, s := range ds.Streams {
		if s.Role.Has(domain.RoleInput) || s.Role.Has(domain.RolePersistent) {
			streams = append(streams, s.Name)
			if s.Role.Has(domain.RoleSynchronized) {
				synced = append(synced, s.Name)
			}
		}
	}
	if len(streams) == 0 {
		return out, nil, fmt.Errorf("%s: %w", ds.Key(), ErrNoInputStreams)
	}
	if len(synced) == 0 {
		synced = streams[:1]
	}

	var dropped []Dropped
	out.Files = out.Files[:0]
	out.TotalRecords = 0

	for _, f := range ds.Files {
		counts, err := v.count(ds, f.Path, streams)
		if err == nil {
			f.Records, err = syncedLength(counts, synced)
		}
		if err != nil {
			logger.Warn("dropping input file", "file", f.Path, "error", err)
			dropped = append(dropped, Dropped{Path: f.Path, Err: err})
			continue
		}

		out.Files = append(out.Files, f)
		out.TotalRecords += f.Records
	}

	if len(out.Files) == 0 {
		return out, dropped, fmt.Errorf("%s: %w", ds.Key(), ErrNoFiles)
	}

	before := out.MaxRecords
	out.ClampRange()
	if out.MaxRecords != before {
		logger.Warn("record range clamped",
			"skip", out.SkipRecords,
			"max_requested", before,
			"max", out.MaxRecords,
			"total", out.TotalRecords,
		)
	}

	logger.Debug("dataset validated",
		"files", len(out.Files),
		"dropped", len(dropped),
		"records", out.TotalRecords,
	)
	return out, dropped, nil
}

func (v *Validator) count(ds domain.InputDataset, path string, streams []string) (map[string]int64, error) {
	useCache := ds.Cacheable && v.cache != nil
	if useCache {
		if counts, ok := v.cache.Lookup(path); ok && hasAll(counts, streams) {
			return counts, nil
		}
	}

	counts, err := v.counter.CountRecords(path, streams)
	if err != nil {
		return nil, err
	}

	if useCache {
		if err := v.cache.Store(path, counts); err != nil {
			v.logger.Warn("failed to store validation cache", "file", path, "error", err)
		}
	}
	return counts, nil
}

func syncedLength(counts map[string]int64, synced []string) (int64, error) {
	n, ok := counts[synced[0]]
	if !ok {
		return 0, fmt.Errorf("stream %q: %w", synced[0], ntuple.ErrNotFound)
	}
	for _, s := range synced[1:] {
		m, ok := counts[s]
		if !ok {
			return 0, fmt.Errorf("stream %q: %w", s, ntuple.ErrNotFound)
		}
		if m != n {
			return 0, fmt.Errorf("%w: %s=%d, %s=%d", ErrStreamMismatch, synced[0], n, s, m)
		}
	}
	return n, nil
}

func hasAll(counts map[string]int64, streams []string) bool {
	for _, s := range streams {
		if _, ok := counts[s]; !ok {
			return false
		}
	}
	return true
}
