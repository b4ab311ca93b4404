package merge

import (
	"fmt"
	"sort"
	"sync"
)

// MergeFunc сливает пиров в аккумулятор. Все значения одного вида.
type MergeFunc func(acc Value, peers []Value) error

// Registry — реестр функций слияния для видов без встроенного Merge.
// Потокобезопасен.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]MergeFunc
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]MergeFunc),
	}
}

// DefaultRegistry создаёт реестр со стандартными видами.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(KindSummed, mergeSummed)
	return r
}

// Register регистрирует функцию слияния для вида.
// Повторная регистрация перезаписывает функцию. Встроенные виды
// сливаются своим Merge, для них возвращается ErrReservedKind.
func (r *Registry) Register(kind string, fn MergeFunc) error {
	if IsBuiltinKind(kind) {
		return fmt.Errorf("%w: %s", ErrReservedKind, kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[kind] = fn
	return nil
}

// Get возвращает функцию слияния по виду.
func (r *Registry) Get(kind string) (MergeFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.funcs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMergeFunc, kind)
	}
	return fn, nil
}

// Kinds возвращает зарегистрированные виды.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.funcs))
	for k := range r.funcs {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
