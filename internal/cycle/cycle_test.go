package cycle

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
)

type testCycle struct {
	Base

	cut    float64
	labels []string
	debug  bool
}

func newTestCycle() Cycle {
	c := &testCycle{Base: NewBase()}
	c.DeclareProperty("Cut", &c.cut)
	c.DeclareProperty("Labels", &c.labels)
	c.DeclareProperty("Debug", &c.debug)
	return c
}

func (c *testCycle) Execute(ev *Event, weight float64) error { return nil }

func TestSetup_AppliesProperties(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	c := newTestCycle()
	cfg := &domain.CycleConfig{
		Name: "test",
		Properties: []domain.Property{
			{Name: "Cut", Values: []string{"25.5"}},
			{Name: "Labels", Values: []string{"a", " b"}},
			{Name: "Debug", Values: []string{"true"}},
			{Name: "Unknown", Values: []string{"1"}},
		},
	}
	if err := Setup(c, cfg, logger); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tc := c.(*testCycle)
	if tc.cut != 25.5 || !tc.debug {
		t.Errorf("scalars not applied: cut=%v debug=%v", tc.cut, tc.debug)
	}
	if len(tc.labels) != 2 || tc.labels[1] != "b" {
		t.Errorf("list not applied: %v", tc.labels)
	}
	if tc.Config() != cfg {
		t.Error("config not set")
	}
	if !bytes.Contains(logs.Bytes(), []byte("property not declared by cycle")) {
		t.Error("unknown property should be logged")
	}
}

func TestProperties_Errors(t *testing.T) {
	p := NewProperties()
	var n int
	if err := p.Declare("N", &n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Declare("N", &n); !errors.Is(err, ErrDuplicateProperty) {
		t.Errorf("expected ErrDuplicateProperty, got %v", err)
	}
	var m map[string]int
	if err := p.Declare("M", &m); !errors.Is(err, ErrUnsupportedProperty) {
		t.Errorf("expected ErrUnsupportedProperty, got %v", err)
	}

	if _, err := p.Apply([]domain.Property{{Name: "N", Values: []string{"x"}}}); !errors.Is(err, ErrInvalidPropertyValue) {
		t.Errorf("expected ErrInvalidPropertyValue, got %v", err)
	}
	if _, err := p.Apply([]domain.Property{{Name: "N", Values: []string{"1", "2"}}}); !errors.Is(err, ErrInvalidPropertyValue) {
		t.Errorf("expected ErrInvalidPropertyValue for list into scalar, got %v", err)
	}
	if names := p.Names(); len(names) != 1 || names[0] != "N" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestHists_BookingOrderAndReset(t *testing.T) {
	h := NewHists()
	pt := h.Book("pt", "jets", 10, 0, 100)
	if h.Book("pt", "jets", 5, 0, 1) != pt {
		t.Error("repeated Book should return existing histogram")
	}
	h.Counter("cuts", "").Add("all", 1)
	h.AddSummed("sumw", "", 2)
	h.AddSummed("sumw", "", 3)

	arts := h.Artifacts()
	if len(arts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(arts))
	}
	if arts[0].Name != "pt" || arts[1].Name != "cuts" || arts[2].Name != "sumw" {
		t.Errorf("unexpected order: %v %v %v", arts[0].Name, arts[1].Name, arts[2].Name)
	}
	if v, _ := merge.SummedValue(arts[2].Value); v != 5 {
		t.Errorf("expected summed 5, got %v", v)
	}

	h.ResetArtifacts()
	if len(h.Artifacts()) != 0 || h.Hist("pt", "jets") != nil {
		t.Error("reset should clear artifacts")
	}
}

func TestNTuple_Detached(t *testing.T) {
	var n NTuple
	var x float64
	if err := n.ConnectInputField("Events", "x", &x); !errors.Is(err, ErrNoStreams) {
		t.Errorf("expected ErrNoStreams, got %v", err)
	}
	if err := n.DeclareOutputField(&x, "x", "Out"); !errors.Is(err, ErrNoStreams) {
		t.Errorf("expected ErrNoStreams, got %v", err)
	}
	if n.InputRecord("Events") != nil {
		t.Error("expected nil record")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("test", newTestCycle)
	if !r.Has("test") {
		t.Error("expected registered cycle")
	}
	c1, err := r.New("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c2, _ := r.New("test")
	if c1 == c2 {
		t.Error("factory should return new instances")
	}
	if _, err := r.New("nope"); !errors.Is(err, ErrCycleNotFound) {
		t.Errorf("expected ErrCycleNotFound, got %v", err)
	}
}
