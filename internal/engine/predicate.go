package engine

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/shaiso/Cyclone/internal/domain"
)

// exprFuncs — функции выражений.
//
// Сравнения переопределяют встроенные: числа разных типов
// (int8 из msgpack и float64 из литерала) сравниваются как float64.
var exprFuncs = template.FuncMap{
	"eq": func(a, b any) bool { return compare(a, b) == 0 },
	"ne": func(a, b any) bool { return compare(a, b) != 0 },
	"lt": func(a, b any) bool { return compare(a, b) < 0 },
	"le": func(a, b any) bool { return compare(a, b) <= 0 },
	"gt": func(a, b any) bool { return compare(a, b) > 0 },
	"ge": func(a, b any) bool { return compare(a, b) >= 0 },

	// abs — модуль числа
	"abs": func(v any) float64 {
		f, _ := toFloat(v)
		return math.Abs(f)
	},

	// default — возвращает значение по умолчанию, если первый аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	// count — длина среза (nil — 0)
	"count": func(v any) int {
		switch s := v.(type) {
		case []any:
			return len(s)
		case []float64:
			return len(s)
		case []string:
			return len(s)
		default:
			return 0
		}
	},

	"contains":  strings.Contains,
	"hasPrefix": strings.HasPrefix,
	"lower":     strings.ToLower,
}

// Predicate — скомпилированный генераторный срез.
type Predicate struct {
	Stream string
	Expr   string
	tmpl   *template.Template
}

// CompilePredicate разбирает выражение один раз.
// Выражение оборачивается в if, чтобы получить bool:
//
//	gt .pt 20.0  →  {{if gt .pt 20.0}}true{{else}}false{{end}}
func CompilePredicate(p domain.SelectionPredicate) (*Predicate, error) {
	expr := strings.TrimSpace(p.Expr)
	if expr == "" {
		return &Predicate{Stream: p.Stream}, nil
	}

	src := fmt.Sprintf(`{{if %s}}true{{else}}false{{end}}`, expr)
	t, err := template.New(p.Stream).Funcs(exprFuncs).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrExprParse, p.Expr, err)
	}
	return &Predicate{Stream: p.Stream, Expr: expr, tmpl: t}, nil
}

// Eval вычисляет условие на записи.
// Пустое выражение всегда истинно.
func (p *Predicate) Eval(rec domain.Record) (bool, error) {
	if p.tmpl == nil {
		return true, nil
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, map[string]any(rec)); err != nil {
		return false, fmt.Errorf("%w: %q: %v", ErrExprEval, p.Expr, err)
	}
	return buf.String() == "true", nil
}

// compare сравнивает числа как float64, остальное — как строки.
func compare(a, b any) int {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
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
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
