package cycle

import (
	"github.com/shaiso/Cyclone/internal/merge"
)

// Hists — артефакты, создаваемые циклом для текущего датасета.
type Hists struct {
	order []merge.Key
	items map[merge.Key]merge.Value
}

// NewHists создаёт пустой набор артефактов.
func NewHists() Hists {
	return Hists{items: make(map[merge.Key]merge.Value)}
}

// Book создаёт гистограмму с учётом ошибок по пути path.
// Повторный вызов возвращает уже созданную.
func (h *Hists) Book(name, path string, nbins int, lo, hi float64) *merge.Histogram {
	if v, ok := h.get(name, path).(*merge.Histogram); ok {
		return v
	}
	hist := merge.NewHistogram(nbins, lo, hi)
	hist.EnableErrors()
	h.put(name, path, hist)
	return hist
}

// Hist возвращает созданную гистограмму (nil, если её нет).
func (h *Hists) Hist(name, path string) *merge.Histogram {
	v, _ := h.get(name, path).(*merge.Histogram)
	return v
}

// Counter возвращает счётчик, создавая его при необходимости.
func (h *Hists) Counter(name, path string) *merge.Counter {
	if v, ok := h.get(name, path).(*merge.Counter); ok {
		return v
	}
	c := merge.NewCounter()
	h.put(name, path, c)
	return c
}

// Summed возвращает суммируемую переменную, создавая её при необходимости.
func (h *Hists) Summed(name, path string) *merge.Opaque {
	if v, ok := h.get(name, path).(*merge.Opaque); ok && v.Type == merge.KindSummed {
		return v
	}
	s := merge.NewSummed(0)
	h.put(name, path, s)
	return s
}

// AddSummed увеличивает суммируемую переменную на delta.
func (h *Hists) AddSummed(name, path string, delta float64) {
	s := h.Summed(name, path)
	v, _ := merge.SummedValue(s)
	s.Data = v + delta
}

// Put добавляет произвольный артефакт (например, Opaque своего вида).
func (h *Hists) Put(name, path string, v merge.Value) {
	h.put(name, path, v)
}

// Artifacts возвращает артефакты в порядке создания.
func (h *Hists) Artifacts() []merge.Artifact {
	out := make([]merge.Artifact, 0, len(h.order))
	for _, k := range h.order {
		out = append(out, merge.Artifact{Name: k.Name, Path: k.Path, Value: h.items[k]})
	}
	return out
}

// ResetArtifacts очищает артефакты.
func (h *Hists) ResetArtifacts() {
	h.order = nil
	h.items = make(map[merge.Key]merge.Value)
}

func (h *Hists) get(name, path string) merge.Value {
	if h.items == nil {
		return nil
	}
	return h.items[merge.Key{Path: path, Name: name}]
}

func (h *Hists) put(name, path string, v merge.Value) {
	if h.items == nil {
		h.items = make(map[merge.Key]merge.Value)
	}
	k := merge.Key{Path: path, Name: name}
	if _, ok := h.items[k]; !ok {
		h.order = append(h.order, k)
	}
	h.items[k] = v
}
