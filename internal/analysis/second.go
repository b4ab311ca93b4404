package analysis

import (
	"math"

	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/domain"
)

// SecondCycle строит распределения по выходному потоку FirstCycle.
type SecondCycle struct {
	cycle.Base

	inputStream string

	example int64
	elPt    []float64
	leadEta float64
}

// NewSecondCycle создаёт SecondCycle.
func NewSecondCycle() cycle.Cycle {
	c := &SecondCycle{
		Base:        cycle.NewBase(),
		inputStream: "FirstCycleTree",
	}
	c.DeclareProperty("FirstCycleStream", &c.inputStream)
	return c
}

func (c *SecondCycle) BeginInputData(ds *domain.InputDataset) error {
	c.Book("electron_pt", "", 50, 0, 100000)
	c.Book("El_p_T", "obj_test", 100, 0, 150000)
	c.Book("lead_abs_eta", "obj_test", 35, 0, 3.5)

	if err := c.ConnectInputField(c.inputStream, "example_variable", &c.example); err != nil {
		return err
	}
	if err := c.ConnectInputField(c.inputStream, "El_p_T", &c.elPt); err != nil {
		return err
	}
	return c.ConnectInputField(c.inputStream, "lead_eta", &c.leadEta)
}

func (c *SecondCycle) Execute(ev *cycle.Event, weight float64) error {
	if c.example != 1 {
		return domain.NewFault(domain.SkipFile, "input was not produced by FirstCycle")
	}
	for _, pt := range c.elPt {
		c.Hist("electron_pt", "").Fill(pt, weight)
		c.Hist("El_p_T", "obj_test").Fill(pt, weight)
	}
	c.Hist("lead_abs_eta", "obj_test").Fill(math.Abs(c.leadEta), weight)
	return nil
}
