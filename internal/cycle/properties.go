package cycle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/Cyclone/internal/domain"
)

// Properties — именованные привязки свойств цикла к переменным.
//
// Поддерживаются скаляры string/int/int64/float64/bool и срезы из них.
// Значения заполняются из конфигурации до BeginCycle.
type Properties struct {
	order    []string
	bindings map[string]any
}

// NewProperties создаёт пустой набор.
func NewProperties() *Properties {
	return &Properties{bindings: make(map[string]any)}
}

// Declare связывает свойство name с переменной по указателю.
func (p *Properties) Declare(name string, target any) error {
	switch target.(type) {
	case *string, *int, *int64, *float64, *bool,
		*[]string, *[]int, *[]int64, *[]float64, *[]bool:
	default:
		return fmt.Errorf("%w: %s is %T", ErrUnsupportedProperty, name, target)
	}
	if _, ok := p.bindings[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProperty, name)
	}
	p.order = append(p.order, name)
	p.bindings[name] = target
	return nil
}

// Names возвращает объявленные свойства в порядке объявления.
func (p *Properties) Names() []string {
	return append([]string(nil), p.order...)
}

// Apply заполняет переменные значениями из конфигурации.
// Возвращает имена свойств конфигурации, которые не объявлены.
func (p *Properties) Apply(props []domain.Property) (unknown []string, err error) {
	for _, prop := range props {
		target, ok := p.bindings[prop.Name]
		if !ok {
			unknown = append(unknown, prop.Name)
			continue
		}
		if err := set(target, prop.Values); err != nil {
			return unknown, fmt.Errorf("property %s: %w", prop.Name, err)
		}
	}
	return unknown, nil
}

func set(target any, values []string) error {
	scalar := func() (string, error) {
		if len(values) != 1 {
			return "", fmt.Errorf("%w: expected one value, got %d", ErrInvalidPropertyValue, len(values))
		}
		return strings.TrimSpace(values[0]), nil
	}

	switch t := target.(type) {
	case *string:
		v, err := scalar()
		if err != nil {
			return err
		}
		*t = v
	case *int:
		v, err := scalar()
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPropertyValue, err)
		}
		*t = n
	case *int64:
		v, err := scalar()
		if err != nil {
			return err
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPropertyValue, err)
		}
		*t = n
	case *float64:
		v, err := scalar()
		if err != nil {
			return err
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPropertyValue, err)
		}
		*t = f
	case *bool:
		v, err := scalar()
		if err != nil {
			return err
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPropertyValue, err)
		}
		*t = b
	case *[]string:
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, strings.TrimSpace(v))
		}
		*t = out
	case *[]int:
		out := make([]int, 0, len(values))
		for _, v := range values {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPropertyValue, err)
			}
			out = append(out, n)
		}
		*t = out
	case *[]int64:
		out := make([]int64, 0, len(values))
		for _, v := range values {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPropertyValue, err)
			}
			out = append(out, n)
		}
		*t = out
	case *[]float64:
		out := make([]float64, 0, len(values))
		for _, v := range values {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPropertyValue, err)
			}
			out = append(out, f)
		}
		*t = out
	case *[]bool:
		out := make([]bool, 0, len(values))
		for _, v := range values {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPropertyValue, err)
			}
			out = append(out, b)
		}
		*t = out
	}
	return nil
}
