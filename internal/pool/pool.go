package pool

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
)

// Job — раздача одного датасета.
type Job struct {
	// Config — конфигурация цикла с уже провалидированными датасетами.
	Config *domain.CycleConfig

	DatasetIndex int

	// First, Count — общий диапазон записей датасета.
	First int64
	Count int64
}

// Dataset возвращает раздаваемый датасет.
func (j Job) Dataset() *domain.InputDataset {
	return &j.Config.Datasets[j.DatasetIndex]
}

// Range — партиция одного воркера.
type Range struct {
	Worker int
	First  int64
	Count  int64
}

// Result — итог одной партиции.
type Result struct {
	Range

	// Bundle — nil, если воркер завершился с ошибкой.
	Bundle *merge.Bundle

	// Log — диагностический лог воркера, есть и при ошибке.
	Log string

	Err error
}

// Pool — исполнитель партиций.
type Pool interface {
	// Workers возвращает число воркеров, между которыми делится датасет.
	Workers() int

	// Dispatch блокируется, пока все партиции не завершатся (успешно или нет).
	// Результаты возвращаются в порядке воркеров. Ошибка возвращается только
	// если раздачу не удалось начать.
	Dispatch(ctx context.Context, job Job) ([]Result, error)

	Close() error
}

// Opener открывает пул по endpoint из конфигурации цикла.
type Opener func(ctx context.Context, endpoint string) (Pool, error)

// Split делит диапазон [first, first+count) на workers непересекающихся
// партиций. Остаток распределяется по первым партициям. Пустые партиции
// не создаются.
func Split(first, count int64, workers int) []Range {
	if workers < 1 {
		workers = 1
	}
	if count <= 0 {
		return nil
	}
	if int64(workers) > count {
		workers = int(count)
	}

	size := count / int64(workers)
	rest := count % int64(workers)

	ranges := make([]Range, 0, workers)
	next := first
	for w := 0; w < workers; w++ {
		n := size
		if int64(w) < rest {
			n++
		}
		ranges = append(ranges, Range{Worker: w, First: next, Count: n})
		next += n
	}
	return ranges
}

// ParseInProcess разбирает endpoint вида inproc://N.
func ParseInProcess(endpoint string) (int, bool, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s", ErrUnknownEndpoint, endpoint)
	}
	if u.Scheme != "inproc" {
		return 0, false, nil
	}
	if u.Host == "" {
		return 1, true, nil
	}
	n, err := strconv.Atoi(u.Host)
	if err != nil || n < 1 {
		return 0, true, fmt.Errorf("%w: bad worker count in %s", ErrUnknownEndpoint, endpoint)
	}
	return n, true, nil
}
