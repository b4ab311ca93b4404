// Package analysis содержит примеры циклов.
//
// FirstCycle читает реконструированные электроны, отбирает события
// с хотя бы одним электроном и пишет их в выходной поток FirstCycleTree.
// SecondCycle читает этот поток из выходного файла первого цикла.
package analysis

import "github.com/shaiso/Cyclone/internal/cycle"

// Register добавляет примеры циклов в реестр.
func Register(r *cycle.Registry) {
	r.Register("FirstCycle", NewFirstCycle)
	r.Register("SecondCycle", NewSecondCycle)
}

// NewRegistry возвращает реестр с примерами циклов.
func NewRegistry() *cycle.Registry {
	r := cycle.NewRegistry()
	Register(r)
	return r
}
