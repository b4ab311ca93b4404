package dataset

import "github.com/shaiso/Cyclone/internal/domain"

// Move — датасет, сменивший позицию при упорядочивании.
type Move struct {
	Dataset string
	From    int
	To      int
}

// Arrange группирует датасеты одного типа подряд.
//
// Типы идут в порядке первого появления, внутри типа сохраняется исходный
// порядок. Возвращает новый список и перемещённые датасеты.
func Arrange(datasets []domain.InputDataset) ([]domain.InputDataset, []Move) {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i, ds := range datasets {
		if _, exists := grouped[ds.Type]; !exists {
			order = append(order, ds.Type)
		}
		grouped[ds.Type] = append(grouped[ds.Type], i)
	}

	out := make([]domain.InputDataset, 0, len(datasets))
	var moves []Move
	for _, t := range order {
		for _, i := range grouped[t] {
			if i != len(out) {
				moves = append(moves, Move{Dataset: datasets[i].Key(), From: i, To: len(out)})
			}
			out = append(out, datasets[i])
		}
	}
	return out, moves
}
