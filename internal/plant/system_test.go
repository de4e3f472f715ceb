package plant

import (
	"errors"
	"testing"
)

// stub is a minimal component for topology tests.
type stub struct {
	label     string
	inIDs     []string
	outIDs    []string
	in        []*Connection
	out       []*Connection
	rule      FluidRule
	params    map[string]*Parameter
	design    []string
	offdesign []string
	manual    bool
}

func newStub(label string, numIn, numOut int) *stub {
	s := &stub{label: label, rule: -1, params: map[string]*Parameter{}}
	ids := []string{"in1", "in2", "in3"}
	s.inIDs = ids[:numIn]
	ids = []string{"out1", "out2", "out3"}
	s.outIDs = ids[:numOut]
	return s
}

func (s *stub) Label() string                     { return s.label }
func (s *stub) InletIDs() []string                { return s.inIDs }
func (s *stub) OutletIDs() []string               { return s.outIDs }
func (s *stub) Attach(in, out []*Connection)      { s.in, s.out = in, out }
func (s *stub) In(i int) *Connection              { return s.in[i] }
func (s *stub) Out(i int) *Connection             { return s.out[i] }
func (s *stub) Params() map[string]*Parameter     { return s.params }
func (s *stub) DesignParams() []string            { return s.design }
func (s *stub) OffdesignParams() []string         { return s.offdesign }
func (s *stub) AutoSwitch() bool                  { return !s.manual }
func (s *stub) PreInit(sys *System) error         { return nil }
func (s *stub) Equations(sys *System) ([]Equation, error) { return nil, nil }

func (s *stub) FluidRule() FluidRule {
	if s.rule >= 0 {
		return s.rule
	}
	if len(s.inIDs) == 1 && len(s.outIDs) == 1 {
		return RulePass
	}
	return RuleBreak
}

func newTestSystem(t *testing.T, fluids ...string) *System {
	t.Helper()
	sys, err := NewSystem(fluids)
	if err != nil {
		t.Fatalf("system: %v", err)
	}
	return sys
}

func TestCheckCollectsAndSorts(t *testing.T) {
	sys := newTestSystem(t, "water")
	src := newStub("zeta source", 0, 1)
	mid := newStub("alpha valve", 1, 1)
	snk := newStub("mu sink", 1, 0)

	if err := sys.AddConns(
		NewConnection(src, "out1", mid, "in1"),
		NewConnection(mid, "out1", snk, "in1"),
	); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := sys.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}

	labels := make([]string, 0, 3)
	for _, cp := range sys.Comps() {
		labels = append(labels, cp.Label())
	}
	want := []string{"alpha valve", "mu sink", "zeta source"}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("component order %v, want %v", labels, want)
		}
	}

	if mid.In(0).Src != src || mid.Out(0).Tgt != snk {
		t.Error("connections not attached in slot order")
	}
}

func TestCheckMissingSlot(t *testing.T) {
	sys := newTestSystem(t, "water")
	src := newStub("source", 0, 1)
	he := newStub("exchanger", 2, 2)
	snk := newStub("sink", 1, 0)

	if err := sys.AddConns(
		NewConnection(src, "out1", he, "in1"),
		NewConnection(he, "out1", snk, "in1"),
	); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := sys.Check()
	var terr *TopologyError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TopologyError, got %v", err)
	}
	if terr.Component != "exchanger" {
		t.Errorf("error names %q", terr.Component)
	}
}

func TestCheckDuplicateLabel(t *testing.T) {
	sys := newTestSystem(t, "water")
	a := newStub("pump", 0, 1)
	b := newStub("pump", 1, 0)

	if err := sys.AddConns(NewConnection(a, "out1", b, "in1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	var terr *TopologyError
	if err := sys.Check(); !errors.As(err, &terr) {
		t.Fatalf("expected TopologyError, got %v", err)
	}
}

func TestAddConnsRejectsBusySlot(t *testing.T) {
	sys := newTestSystem(t, "water")
	src := newStub("source", 0, 1)
	a := newStub("a", 1, 0)
	b := newStub("b", 1, 0)

	if err := sys.AddConns(NewConnection(src, "out1", a, "in1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	var terr *TopologyError
	if err := sys.AddConns(NewConnection(src, "out1", b, "in1")); !errors.As(err, &terr) {
		t.Fatalf("expected TopologyError for reused outlet, got %v", err)
	}
}

func TestCheckEmptyNetwork(t *testing.T) {
	sys := newTestSystem(t, "water")
	if err := sys.Check(); err == nil {
		t.Fatal("expected error for empty network")
	}
}
