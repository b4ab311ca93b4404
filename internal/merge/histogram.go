package merge

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Histogram — одномерная гистограмма с фиксированной разбивкой.
type Histogram struct {
	// Edges — границы бинов, len(Edges) = число бинов + 1.
	Edges    []float64 `msgpack:"edges"`
	Contents []float64 `msgpack:"contents"`

	// SumW2 — сумма квадратов весов по бинам; nil — ошибки не отслеживаются.
	SumW2 []float64 `msgpack:"sumw2,omitempty"`

	Underflow float64 `msgpack:"underflow"`
	Overflow  float64 `msgpack:"overflow"`
	Entries   int64   `msgpack:"entries"`
}

// NewHistogram создаёт гистограмму с nbins равными бинами на [lo, hi).
func NewHistogram(nbins int, lo, hi float64) *Histogram {
	edges := make([]float64, nbins+1)
	floats.Span(edges, lo, hi)
	return &Histogram{Edges: edges, Contents: make([]float64, nbins)}
}

func (h *Histogram) Kind() string { return KindHistogram }

// Bins возвращает число бинов.
func (h *Histogram) Bins() int {
	return len(h.Contents)
}

// EnableErrors включает учёт суммы квадратов весов.
// Для уже заполненных бинов предполагаются единичные веса.
func (h *Histogram) EnableErrors() {
	if h.SumW2 != nil {
		return
	}
	h.SumW2 = make([]float64, len(h.Contents))
	copy(h.SumW2, h.Contents)
}

// Fill добавляет значение x с весом w.
// NaN попадает в overflow, как и значения за верхней границей.
func (h *Histogram) Fill(x, w float64) {
	h.Entries++
	if math.IsNaN(x) {
		h.Overflow += w
		return
	}
	if x < h.Edges[0] {
		h.Underflow += w
		return
	}
	if x >= h.Edges[len(h.Edges)-1] {
		h.Overflow += w
		return
	}
	i := sort.SearchFloat64s(h.Edges, x)
	if i == len(h.Edges) || h.Edges[i] != x {
		i--
	}
	h.Contents[i] += w
	if h.SumW2 != nil {
		h.SumW2[i] += w * w
	}
}

// Error возвращает ошибку содержимого бина i.
func (h *Histogram) Error(i int) float64 {
	if h.SumW2 != nil {
		return math.Sqrt(h.SumW2[i])
	}
	return math.Sqrt(math.Abs(h.Contents[i]))
}

// Integral возвращает сумму содержимого бинов (без under/overflow).
func (h *Histogram) Integral() float64 {
	return floats.Sum(h.Contents)
}

func (h *Histogram) Clone() Value {
	cp := *h
	cp.Edges = append([]float64(nil), h.Edges...)
	cp.Contents = append([]float64(nil), h.Contents...)
	if h.SumW2 != nil {
		cp.SumW2 = append([]float64(nil), h.SumW2...)
	}
	return &cp
}

func (h *Histogram) Merge(peers []Value) error {
	for _, p := range peers {
		peer, ok := p.(*Histogram)
		if !ok {
			return fmt.Errorf("%w: %s into histogram", ErrKindMismatch, p.Kind())
		}
		if len(peer.Edges) != len(h.Edges) || !floats.Equal(peer.Edges, h.Edges) {
			return fmt.Errorf("%w: %d bins vs %d bins", ErrBinningMismatch, peer.Bins(), h.Bins())
		}
	}

	for _, p := range peers {
		peer := p.(*Histogram)
		if peer.SumW2 != nil {
			h.EnableErrors()
		}
		if h.SumW2 != nil {
			if peer.SumW2 != nil {
				floats.Add(h.SumW2, peer.SumW2)
			} else {
				floats.Add(h.SumW2, peer.Contents)
			}
		}
		floats.Add(h.Contents, peer.Contents)
		h.Underflow += peer.Underflow
		h.Overflow += peer.Overflow
		h.Entries += peer.Entries
	}
	return nil
}
