package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaiso/Cyclone/internal/domain"
)

func ds(typ, version string) domain.InputDataset {
	return domain.InputDataset{Type: typ, Version: version, MaxRecords: -1}
}

func keys(list []domain.InputDataset) []string {
	out := make([]string, len(list))
	for i, d := range list {
		out[i] = d.Key()
	}
	return out
}

func TestArrange_GroupsStably(t *testing.T) {
	in := []domain.InputDataset{
		ds("ttbar", "1"), ds("data", "A"), ds("ttbar", "2"), ds("wjets", "1"), ds("data", "B"),
	}

	out, moves := Arrange(in)
	assert.Equal(t, []string{"ttbar/1", "ttbar/2", "data/A", "data/B", "wjets/1"}, keys(out))
	assert.Equal(t, []Move{
		{Dataset: "ttbar/2", From: 2, To: 1},
		{Dataset: "data/A", From: 1, To: 2},
		{Dataset: "data/B", From: 4, To: 3},
		{Dataset: "wjets/1", From: 3, To: 4},
	}, moves)

	// входной список не изменяется
	assert.Equal(t, "data/A", in[1].Key())
}

func TestArrange_Idempotent(t *testing.T) {
	in := []domain.InputDataset{
		ds("b", "1"), ds("a", "1"), ds("b", "2"), ds("c", "1"), ds("a", "2"), ds("b", "3"),
	}
	once, _ := Arrange(in)
	twice, moves := Arrange(once)
	assert.Equal(t, keys(once), keys(twice))
	assert.Empty(t, moves)
}

func TestArrange_Empty(t *testing.T) {
	out, moves := Arrange(nil)
	assert.Empty(t, out)
	assert.Empty(t, moves)
}
