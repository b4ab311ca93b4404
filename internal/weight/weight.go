// Package weight вычисляет нормировочный вес записей датасета.
package weight

import (
	"errors"
	"fmt"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/engine"
)

// Epsilon — минимальная суммарная светимость, при которой вес определён.
const Epsilon = 1e-10

// ErrZeroLuminosity — суммарная светимость типа не положительна.
// Вес был бы нулевым, и нормировка всего типа потерялась бы молча.
var ErrZeroLuminosity = errors.New("aggregate luminosity is zero")

// RecordView даёт текущую запись потока.
type RecordView interface {
	Current(stream string) domain.Record
}

type candidate struct {
	key    string
	scaled float64
	preds  []*engine.Predicate
}

// Calculator — вес записей одного датасета.
//
// Всё, что не зависит от записи, вычисляется в NewCalculator:
// отбор датасетов того же типа, их масштабированная светимость,
// компиляция срезов. На запись вычисляются только срезы.
type Calculator struct {
	dataset string
	target  float64
	isData  bool

	// static — сумма светимостей датасетов без срезов.
	static float64
	cut    []candidate
}

// NewCalculator готовит вычисление веса для датасета current.
func NewCalculator(current domain.InputDataset, all []domain.InputDataset, target float64) (*Calculator, error) {
	c := &Calculator{
		dataset: current.Key(),
		target:  target,
		isData:  current.IsData(),
	}
	if c.isData {
		return c, nil
	}

	for i := range all {
		d := &all[i]
		if d.Type != current.Type {
			continue
		}
		cand := candidate{key: d.Key(), scaled: d.ScaledLumi()}
		for _, p := range d.Predicates {
			pred, err := engine.CompilePredicate(p)
			if err != nil {
				return nil, domain.WrapFault(domain.SkipDataset, err, "compile predicate of "+d.Key())
			}
			cand.preds = append(cand.preds, pred)
		}
		if len(cand.preds) == 0 {
			c.static += cand.scaled
		} else {
			c.cut = append(c.cut, cand)
		}
	}

	if len(c.cut) == 0 && c.static <= Epsilon {
		return nil, c.zero(c.static)
	}
	return c, nil
}

// Weight возвращает вес текущей записи.
// Для "data" вес всегда 1.
func (c *Calculator) Weight(view RecordView) (float64, error) {
	if c.isData {
		return 1, nil
	}

	sum := c.static
	for i := range c.cut {
		pass, err := c.cut[i].pass(view)
		if err != nil {
			return 0, domain.WrapFault(domain.SkipRecord, err, "evaluate predicate of "+c.cut[i].key)
		}
		if pass {
			sum += c.cut[i].scaled
		}
	}

	if sum <= Epsilon {
		return 0, c.zero(sum)
	}
	return c.target / sum, nil
}

func (c *Calculator) zero(sum float64) error {
	return domain.WrapFault(domain.SkipDataset,
		fmt.Errorf("%w: dataset %s, sum %g", ErrZeroLuminosity, c.dataset, sum),
		"normalization")
}

func (cand *candidate) pass(view RecordView) (bool, error) {
	for _, p := range cand.preds {
		rec := view.Current(p.Stream)
		if rec == nil {
			return false, nil
		}
		ok, err := p.Eval(rec)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
