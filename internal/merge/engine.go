package merge

import (
	"fmt"
	"log/slog"
)

// Config — настройки Engine.
type Config struct {
	Registry *Registry
	Logger   *slog.Logger

	// OnReject вызывается для каждого отклонённого артефакта (метрики).
	OnReject func(kind string)
}

// Engine сливает бандлы и отдельные значения.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
	onReject func(kind string)
}

// Rejection — артефакт, не принятый при слиянии.
type Rejection struct {
	Key      Key
	Kind     string
	Expected string
	Err      error
}

// New создаёт Engine.
func New(cfg Config) *Engine {
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		registry: cfg.Registry,
		logger:   cfg.Logger,
		onReject: cfg.OnReject,
	}
}

// Registry возвращает реестр функций слияния.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// MergeBundles сливает бандлы в новый бандл.
//
// Ключи обходятся в порядке первого появления, пиры — в порядке бандлов.
// Входные бандлы не изменяются. Артефакт другого вида отклоняется и
// попадает в список rejected, слияние продолжается.
func (e *Engine) MergeBundles(bundles []*Bundle) (*Bundle, []Rejection) {
	var order []Key
	groups := make(map[Key][]*Artifact)
	for _, b := range bundles {
		if b == nil {
			continue
		}
		for _, a := range b.Artifacts() {
			k := a.Key()
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], a)
		}
	}

	out := NewBundle()
	var rejected []Rejection
	for _, k := range order {
		group := groups[k]
		acc := group[0].Value.Clone()

		var peers []Value
		for _, a := range group[1:] {
			if a.Value.Kind() != acc.Kind() {
				r := Rejection{
					Key:      k,
					Kind:     a.Value.Kind(),
					Expected: acc.Kind(),
					Err:      fmt.Errorf("%w: %s is %s, expected %s", ErrKindMismatch, k, a.Value.Kind(), acc.Kind()),
				}
				rejected = append(rejected, r)
				e.Reject(r)
				continue
			}
			peers = append(peers, a.Value)
		}

		if err := e.MergeValues(acc, peers); err != nil {
			r := Rejection{Key: k, Kind: acc.Kind(), Expected: acc.Kind(), Err: err}
			rejected = append(rejected, r)
			e.Reject(r)
			acc = group[0].Value.Clone()
		}

		_ = out.Put(Artifact{Name: k.Name, Path: k.Path, Value: acc})
	}
	return out, rejected
}

// MergeValues сливает peers в acc.
// Значения без встроенного Merge сливаются функцией из реестра;
// если функции нет, acc остаётся без изменений и пишется предупреждение.
func (e *Engine) MergeValues(acc Value, peers []Value) error {
	if len(peers) == 0 {
		return nil
	}
	for _, p := range peers {
		if p.Kind() != acc.Kind() {
			return fmt.Errorf("%w: %s into %s", ErrKindMismatch, p.Kind(), acc.Kind())
		}
	}

	if m, ok := acc.(Merger); ok {
		return m.Merge(peers)
	}

	fn, err := e.registry.Get(acc.Kind())
	if err != nil {
		e.logger.Warn("no merge function, keeping first value",
			"kind", acc.Kind(),
			"dropped", len(peers),
		)
		return nil
	}
	return fn(acc, peers)
}

// Reject логирует отклонённый артефакт и передаёт его вид в OnReject.
// Его зовут и вне MergeBundles, например при записи в существующий файл.
func (e *Engine) Reject(r Rejection) {
	e.logger.Error("artifact rejected during merge",
		"key", r.Key.String(),
		"kind", r.Kind,
		"expected", r.Expected,
		"error", r.Err,
	)
	if e.onReject != nil {
		e.onReject(r.Kind)
	}
}
