package ntuple

import (
	"fmt"

	"github.com/shaiso/Cyclone/internal/domain"
)

type outField struct {
	name   string
	target any
}

// Outputs накапливает записи выходных потоков в памяти.
// Потоки сообщаются в порядке объявления.
type Outputs struct {
	order   []string
	fields  map[string][]outField
	records map[string][]domain.Record
}

// NewOutputs создаёт пустой набор выходных потоков.
func NewOutputs() *Outputs {
	return &Outputs{
		fields:  make(map[string][]outField),
		records: make(map[string][]domain.Record),
	}
}

// DeclareOutputField объявляет поле выходного потока.
// Значение снимается с переменной target в момент AppendCurrentRecord.
func (o *Outputs) DeclareOutputField(target any, field, stream string) error {
	if err := checkTarget(target); err != nil {
		return fmt.Errorf("declare %s.%s: %w", stream, field, err)
	}
	o.ensure(stream)
	for _, f := range o.fields[stream] {
		if f.name == field {
			return fmt.Errorf("%w: field %s.%s declared twice", ErrNameConflict, stream, field)
		}
	}
	o.fields[stream] = append(o.fields[stream], outField{name: field, target: target})
	return nil
}

// AppendCurrentRecord добавляет запись из текущих значений объявленных полей.
func (o *Outputs) AppendCurrentRecord(stream string) error {
	fields, ok := o.fields[stream]
	if !ok {
		return fmt.Errorf("%w: stream %q", ErrNotFound, stream)
	}
	rec := make(domain.Record, len(fields))
	for _, f := range fields {
		rec[f.name] = snapshot(f.target)
	}
	o.records[stream] = append(o.records[stream], rec)
	return nil
}

// AppendRecord добавляет готовую запись (копия персистентного потока).
func (o *Outputs) AppendRecord(stream string, rec domain.Record) {
	o.ensure(stream)
	cp := make(domain.Record, len(rec))
	for k, v := range rec {
		cp[k] = v
	}
	o.records[stream] = append(o.records[stream], cp)
}

// HasFields возвращает true, если у потока объявлены поля.
func (o *Outputs) HasFields(stream string) bool {
	return len(o.fields[stream]) > 0
}

// Streams возвращает имена потоков в порядке объявления.
func (o *Outputs) Streams() []string {
	return append([]string(nil), o.order...)
}

// Records возвращает накопленные записи потока.
func (o *Outputs) Records(stream string) []domain.Record {
	return o.records[stream]
}

// Reset очищает записи, сохраняя объявления полей.
func (o *Outputs) Reset() {
	for s := range o.records {
		o.records[s] = nil
	}
}

func (o *Outputs) ensure(stream string) {
	if _, ok := o.records[stream]; ok {
		return
	}
	o.order = append(o.order, stream)
	o.records[stream] = nil
}
