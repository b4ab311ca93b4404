package merge

import "fmt"

// KindSummed — числовая переменная, сливается суммой.
const KindSummed = "summed"

// NewSummed создаёт суммируемую переменную.
func NewSummed(v float64) *Opaque {
	return &Opaque{Type: KindSummed, Data: v}
}

// SummedValue возвращает значение суммируемой переменной.
func SummedValue(v Value) (float64, bool) {
	o, ok := v.(*Opaque)
	if !ok || o.Type != KindSummed {
		return 0, false
	}
	return number(o.Data)
}

func mergeSummed(acc Value, peers []Value) error {
	sum, ok := SummedValue(acc)
	if !ok {
		return fmt.Errorf("%w: %s is not summed", ErrInvalidValue, acc.Kind())
	}
	for _, p := range peers {
		v, ok := SummedValue(p)
		if !ok {
			return fmt.Errorf("%w: %s is not summed", ErrInvalidValue, p.Kind())
		}
		sum += v
	}
	acc.(*Opaque).Data = sum
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
