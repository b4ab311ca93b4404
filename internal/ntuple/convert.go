package ntuple

import (
	"fmt"
	"reflect"
)

// assign записывает значение поля записи в переменную по указателю.
// Числа msgpack приходят как int8..uint64/float32/float64 и приводятся к типу цели.
func assign(target any, v any) error {
	switch t := target.(type) {
	case *any:
		*t = v
	case *float64:
		f, ok := toFloat(v)
		if !ok {
			return mismatch(target, v)
		}
		*t = f
	case *float32:
		f, ok := toFloat(v)
		if !ok {
			return mismatch(target, v)
		}
		*t = float32(f)
	case *int64:
		i, ok := toInt(v)
		if !ok {
			return mismatch(target, v)
		}
		*t = i
	case *int:
		i, ok := toInt(v)
		if !ok {
			return mismatch(target, v)
		}
		*t = int(i)
	case *int32:
		i, ok := toInt(v)
		if !ok {
			return mismatch(target, v)
		}
		*t = int32(i)
	case *bool:
		b, ok := v.(bool)
		if !ok {
			return mismatch(target, v)
		}
		*t = b
	case *string:
		s, ok := v.(string)
		if !ok {
			return mismatch(target, v)
		}
		*t = s
	case *[]float64:
		items, ok := toSlice(v)
		if !ok {
			return mismatch(target, v)
		}
		out := (*t)[:0]
		for _, item := range items {
			f, ok := toFloat(item)
			if !ok {
				return mismatch(target, v)
			}
			out = append(out, f)
		}
		*t = out
	case *[]int64:
		items, ok := toSlice(v)
		if !ok {
			return mismatch(target, v)
		}
		out := (*t)[:0]
		for _, item := range items {
			i, ok := toInt(item)
			if !ok {
				return mismatch(target, v)
			}
			out = append(out, i)
		}
		*t = out
	case *[]string:
		items, ok := toSlice(v)
		if !ok {
			return mismatch(target, v)
		}
		out := (*t)[:0]
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return mismatch(target, v)
			}
			out = append(out, s)
		}
		*t = out
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedTarget, target)
	}
	return nil
}

// zero обнуляет переменную (запись отсутствует в потоке).
func zero(target any) {
	rv := reflect.ValueOf(target)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
	}
}

// checkTarget проверяет, что переменная поддерживается assign.
func checkTarget(target any) error {
	switch target.(type) {
	case *any, *float64, *float32, *int64, *int, *int32, *bool, *string,
		*[]float64, *[]int64, *[]string:
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedTarget, target)
	}
}

// snapshot снимает текущее значение переменной. Срезы копируются.
func snapshot(target any) any {
	rv := reflect.ValueOf(target).Elem()
	if rv.Kind() == reflect.Slice {
		cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(cp, rv)
		return cp.Interface()
	}
	return rv.Interface()
}

func mismatch(target, v any) error {
	return fmt.Errorf("cannot assign %T to %T", v, target)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, true
	}
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
