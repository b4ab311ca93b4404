package merge

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeValue кодирует значение в msgpack. Возвращает вид и байты.
func EncodeValue(v Value) (string, []byte, error) {
	var payload any = v
	if o, ok := v.(*Opaque); ok {
		if IsBuiltinKind(o.Type) {
			return "", nil, fmt.Errorf("%w: opaque value of kind %s", ErrReservedKind, o.Type)
		}
		payload = o.Data
	}
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", v.Kind(), err)
	}
	return v.Kind(), data, nil
}

// DecodeValue декодирует значение. Неизвестные виды становятся Opaque.
func DecodeValue(kind string, data []byte) (Value, error) {
	var v Value
	switch kind {
	case KindCounter:
		v = NewCounter()
	case KindStatistics:
		v = &Statistics{}
	case KindHistogram:
		v = &Histogram{}
	case KindStream:
		v = &RecordStream{}
	default:
		o := &Opaque{Type: kind}
		if err := msgpack.Unmarshal(data, &o.Data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return o, nil
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return v, nil
}

type wireArtifact struct {
	Name string `msgpack:"name"`
	Path string `msgpack:"path"`
	Kind string `msgpack:"kind"`
	Data []byte `msgpack:"data"`
}

// EncodeBundle кодирует бандл для передачи между процессами.
func EncodeBundle(b *Bundle) ([]byte, error) {
	wire := make([]wireArtifact, 0, b.Len())
	for _, a := range b.Artifacts() {
		kind, data, err := EncodeValue(a.Value)
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", a.Key(), err)
		}
		wire = append(wire, wireArtifact{Name: a.Name, Path: a.Path, Kind: kind, Data: data})
	}
	return msgpack.Marshal(wire)
}

// DecodeBundle декодирует бандл, сохраняя порядок артефактов.
func DecodeBundle(data []byte) (*Bundle, error) {
	var wire []wireArtifact
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	b := NewBundle()
	for _, w := range wire {
		v, err := DecodeValue(w.Kind, w.Data)
		if err != nil {
			return nil, fmt.Errorf("artifact %s/%s: %w", w.Path, w.Name, err)
		}
		if err := b.Put(Artifact{Name: w.Name, Path: w.Path, Value: v}); err != nil {
			return nil, err
		}
	}
	return b, nil
}
