package cycle

import (
	"fmt"
	"sort"
	"sync"
)

// Factory создаёт новый экземпляр цикла.
type Factory func() Cycle

// Registry — реестр циклов по имени.
//
// Контроллер и воркеры создают циклы по имени из конфигурации.
// Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register регистрирует фабрику цикла.
// Если цикл с таким именем уже есть, он будет перезаписан.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New создаёт цикл по имени.
func (r *Registry) New(name string) (Cycle, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCycleNotFound, name)
	}
	return f(), nil
}

// Has проверяет, зарегистрирован ли цикл.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names возвращает имена зарегистрированных циклов.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
