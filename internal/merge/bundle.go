package merge

import (
	"fmt"

	"github.com/shaiso/Cyclone/internal/domain"
)

// Key — ключ артефакта в бандле.
type Key struct {
	Path string
	Name string
}

func (k Key) String() string {
	if k.Path == "" {
		return k.Name
	}
	return k.Path + "/" + k.Name
}

// Artifact — именованное значение с путём в дереве выхода.
type Artifact struct {
	Name  string
	Path  string
	Value Value
}

// Key возвращает ключ артефакта.
func (a *Artifact) Key() Key {
	return Key{Path: a.Path, Name: a.Name}
}

// Bundle — набор артефактов, упорядоченный по добавлению.
type Bundle struct {
	keys  []Key
	items map[Key]*Artifact
}

// NewBundle создаёт пустой бандл.
func NewBundle() *Bundle {
	return &Bundle{items: make(map[Key]*Artifact)}
}

// Put добавляет артефакт. Ключ должен быть уникален.
func (b *Bundle) Put(a Artifact) error {
	if a.Value == nil {
		return fmt.Errorf("%w: %s has no value", ErrInvalidValue, a.Key())
	}
	k := a.Key()
	if _, ok := b.items[k]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateArtifact, k)
	}
	b.keys = append(b.keys, k)
	b.items[k] = &a
	return nil
}

// Get возвращает артефакт по ключу.
func (b *Bundle) Get(path, name string) (*Artifact, bool) {
	a, ok := b.items[Key{Path: path, Name: name}]
	return a, ok
}

// Artifacts возвращает артефакты в порядке добавления.
func (b *Bundle) Artifacts() []*Artifact {
	out := make([]*Artifact, 0, len(b.keys))
	for _, k := range b.keys {
		out = append(out, b.items[k])
	}
	return out
}

// Len возвращает число артефактов.
func (b *Bundle) Len() int {
	return len(b.keys)
}

// Statistics возвращает статистику цикла из бандла.
func (b *Bundle) Statistics() *Statistics {
	a, ok := b.Get("", StatisticsName)
	if !ok {
		return &Statistics{}
	}
	s, ok := a.Value.(*Statistics)
	if !ok {
		return &Statistics{}
	}
	return s
}

// Clone возвращает глубокую копию бандла.
func (b *Bundle) Clone() *Bundle {
	out := NewBundle()
	for _, a := range b.Artifacts() {
		_ = out.Put(Artifact{Name: a.Name, Path: a.Path, Value: a.Value.Clone()})
	}
	return out
}

// PutStream добавляет поток записей в корень выхода.
func (b *Bundle) PutStream(name string, recs []domain.Record) error {
	return b.Put(Artifact{Name: name, Value: &RecordStream{Records: recs}})
}
