package merge

import (
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/shaiso/Cyclone/internal/domain"
)

// Встроенные виды значений.
const (
	KindCounter    = "counter"
	KindStatistics = "statistics"
	KindHistogram  = "histogram"
	KindStream     = "stream"
)

// IsBuiltinKind сообщает, зарезервирован ли вид за встроенным значением.
func IsBuiltinKind(kind string) bool {
	switch kind {
	case KindCounter, KindStatistics, KindHistogram, KindStream:
		return true
	}
	return false
}

// StatisticsName — имя артефакта статистики цикла.
const StatisticsName = "CycleStatistics"

// Value — значение артефакта.
type Value interface {
	// Kind возвращает объявленный вид значения.
	Kind() string

	// Clone возвращает независимую копию.
	Clone() Value
}

// Merger — значение, которое умеет сливать в себя пиров того же вида.
type Merger interface {
	Value
	Merge(peers []Value) error
}

// Counter — именованные счётчики, сливаются поэлементной суммой.
type Counter struct {
	Values map[string]float64 `msgpack:"values"`
}

// NewCounter создаёт пустой счётчик.
func NewCounter() *Counter {
	return &Counter{Values: make(map[string]float64)}
}

func (c *Counter) Kind() string { return KindCounter }

// Add увеличивает счётчик name на delta.
func (c *Counter) Add(name string, delta float64) {
	if c.Values == nil {
		c.Values = make(map[string]float64)
	}
	c.Values[name] += delta
}

func (c *Counter) Clone() Value {
	out := NewCounter()
	for k, v := range c.Values {
		out.Values[k] = v
	}
	return out
}

func (c *Counter) Merge(peers []Value) error {
	for _, p := range peers {
		peer, ok := p.(*Counter)
		if !ok {
			return fmt.Errorf("%w: %s into counter", ErrKindMismatch, p.Kind())
		}
		for k, v := range peer.Values {
			c.Add(k, v)
		}
	}
	return nil
}

// Statistics — статистика обработки: обработано и пропущено записей.
type Statistics struct {
	Processed int64 `msgpack:"processed"`
	Skipped   int64 `msgpack:"skipped"`
}

func (s *Statistics) Kind() string { return KindStatistics }

func (s *Statistics) Clone() Value {
	cp := *s
	return &cp
}

func (s *Statistics) Merge(peers []Value) error {
	for _, p := range peers {
		peer, ok := p.(*Statistics)
		if !ok {
			return fmt.Errorf("%w: %s into statistics", ErrKindMismatch, p.Kind())
		}
		s.Processed += peer.Processed
		s.Skipped += peer.Skipped
	}
	return nil
}

// Accepted возвращает число принятых (не пропущенных) записей.
func (s *Statistics) Accepted() int64 {
	return s.Processed - s.Skipped
}

// RecordStream — выходной поток записей, сливается конкатенацией.
type RecordStream struct {
	Records []domain.Record `msgpack:"records"`
}

func (r *RecordStream) Kind() string { return KindStream }

func (r *RecordStream) Clone() Value {
	return &RecordStream{Records: append([]domain.Record(nil), r.Records...)}
}

func (r *RecordStream) Merge(peers []Value) error {
	for _, p := range peers {
		peer, ok := p.(*RecordStream)
		if !ok {
			return fmt.Errorf("%w: %s into stream", ErrKindMismatch, p.Kind())
		}
		r.Records = append(r.Records, peer.Records...)
	}
	return nil
}

// Opaque — значение произвольного вида.
// Сливается функцией, зарегистрированной в Registry для Type.
type Opaque struct {
	Type string `msgpack:"type"`
	Data any    `msgpack:"data"`
}

func (o *Opaque) Kind() string { return o.Type }

// Clone копирует Data целиком: функция слияния вправе менять аккумулятор на месте.
func (o *Opaque) Clone() Value {
	return &Opaque{Type: o.Type, Data: copyData(o.Data)}
}

// copyData копирует v через msgpack, сохраняя динамический тип
// ([]float64 остаётся []float64, а не []any). Если тип не кодируется,
// возвращается сам v.
func copyData(v any) any {
	if v == nil {
		return nil
	}
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return v
	}
	dst := reflect.New(reflect.TypeOf(v))
	if err := msgpack.Unmarshal(raw, dst.Interface()); err != nil {
		return v
	}
	return dst.Elem().Interface()
}
