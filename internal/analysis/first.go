package analysis

import (
	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/domain"
)

// FirstCycle — цикл отбора электронов.
type FirstCycle struct {
	cycle.Base

	recoStream   string
	outputStream string
	minPt        float64
	label        string

	elN   int64
	elPt  []float64
	elEta []float64

	outExample int64
	outPt      []float64
	outLeadEta float64
}

// NewFirstCycle создаёт FirstCycle со свойствами по умолчанию.
func NewFirstCycle() cycle.Cycle {
	c := &FirstCycle{
		Base:         cycle.NewBase(),
		recoStream:   "Reco",
		outputStream: "FirstCycleTree",
	}
	c.DeclareProperty("RecoStream", &c.recoStream)
	c.DeclareProperty("OutputStream", &c.outputStream)
	c.DeclareProperty("MinPt", &c.minPt)
	c.DeclareProperty("Label", &c.label)
	return c
}

func (c *FirstCycle) BeginCycle() error {
	c.Logger().Info("first cycle configured",
		"reco_stream", c.recoStream,
		"output_stream", c.outputStream,
		"min_pt", c.minPt,
		"label", c.label,
	)
	return nil
}

func (c *FirstCycle) BeginInputData(ds *domain.InputDataset) error {
	c.Book("El_p_T_hist", "", 100, 0, 150000)
	c.Book("El_eta_hist", "electrons", 50, -3.5, 3.5)

	for field, target := range map[string]any{
		"El_N":   &c.elN,
		"El_p_T": &c.elPt,
		"El_eta": &c.elEta,
	} {
		if err := c.ConnectInputField(c.recoStream, field, target); err != nil {
			return err
		}
	}

	if err := c.DeclareOutputField(&c.outExample, "example_variable", c.outputStream); err != nil {
		return err
	}
	if err := c.DeclareOutputField(&c.outPt, "El_p_T", c.outputStream); err != nil {
		return err
	}
	return c.DeclareOutputField(&c.outLeadEta, "lead_eta", c.outputStream)
}

func (c *FirstCycle) Execute(ev *cycle.Event, weight float64) error {
	c.outExample = 1
	c.outPt = c.outPt[:0]
	c.outLeadEta = 0

	cutflow := c.Counter("cutflow", "")
	cutflow.Add("allEvents", weight)

	for i := 0; i < int(c.elN) && i < len(c.elPt); i++ {
		pt := c.elPt[i]
		if pt < c.minPt {
			continue
		}
		c.outPt = append(c.outPt, pt)
		c.Hist("El_p_T_hist", "").Fill(pt, weight)
		if i < len(c.elEta) {
			c.Hist("El_eta_hist", "electrons").Fill(c.elEta[i], weight)
			if len(c.outPt) == 1 {
				c.outLeadEta = c.elEta[i]
			}
		}
	}

	if len(c.outPt) == 0 {
		return domain.NewFault(domain.SkipRecord, "no electrons")
	}

	cutflow.Add("passedEvents", weight)
	c.AddSummed("passedWeight", "", weight)
	return nil
}

func (c *FirstCycle) EndInputData(ds *domain.InputDataset) error {
	cutflow := c.Counter("cutflow", "")
	c.Logger().Info("dataset summary",
		"dataset", ds.Key(),
		"all_events", cutflow.Values["allEvents"],
		"passed_events", cutflow.Values["passedEvents"],
	)
	return nil
}
