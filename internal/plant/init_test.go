package plant

import (
	"errors"
	"testing"
)

func chain(t *testing.T, sys *System, comps ...*stub) []*Connection {
	t.Helper()
	conns := make([]*Connection, 0, len(comps)-1)
	for i := 0; i < len(comps)-1; i++ {
		conns = append(conns, NewConnection(comps[i], "out1", comps[i+1], "in1"))
	}
	if err := sys.AddConns(conns...); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := sys.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
	return conns
}

func TestInitFluidsSingleFluid(t *testing.T) {
	sys := newTestSystem(t, "water")
	conns := chain(t, sys,
		newStub("source", 0, 1),
		newStub("valve", 1, 1),
		newStub("sink", 1, 0),
	)

	if err := sys.InitFluids(); err != nil {
		t.Fatalf("init fluids: %v", err)
	}
	for _, c := range conns {
		if c.Fluid.Val["water"] != 1 {
			t.Errorf("%s: water fraction %g", c, c.Fluid.Val["water"])
		}
	}
}

func TestInitFluidsPropagatesForward(t *testing.T) {
	sys := newTestSystem(t, "N2", "O2")
	conns := chain(t, sys,
		newStub("source", 0, 1),
		newStub("compressor", 1, 1),
		newStub("cooler", 1, 1),
		newStub("sink", 1, 0),
	)
	conns[0].Fluid.Specify("N2", 0.767)
	conns[0].Fluid.Specify("O2", 0.233)

	if err := sys.InitFluids(); err != nil {
		t.Fatalf("init fluids: %v", err)
	}
	last := conns[len(conns)-1]
	if last.Fluid.Val["N2"] != 0.767 || last.Fluid.Val["O2"] != 0.233 {
		t.Errorf("composition not propagated: %v", last.Fluid.Val)
	}
	if last.Fluid.Val0["N2"] != 0.767 {
		t.Errorf("starting value not recorded: %v", last.Fluid.Val0)
	}
}

func TestInitFluidsFiveConnectionChain(t *testing.T) {
	sys := newTestSystem(t, "N2", "O2")
	conns := chain(t, sys,
		newStub("source", 0, 1),
		newStub("compressor", 1, 1),
		newStub("cooler", 1, 1),
		newStub("valve", 1, 1),
		newStub("reheater", 1, 1),
		newStub("sink", 1, 0),
	)
	if len(conns) != 5 {
		t.Fatalf("connection count %d", len(conns))
	}

	// a single anchor in the middle floods the whole chain both ways
	conns[2].Fluid.Specify("N2", 0.767)
	conns[2].Fluid.Specify("O2", 0.233)

	if err := sys.InitFluids(); err != nil {
		t.Fatalf("init fluids: %v", err)
	}
	for _, c := range conns {
		if c.Fluid.Val["N2"] != 0.767 || c.Fluid.Val["O2"] != 0.233 {
			t.Errorf("%s: composition %v", c, c.Fluid.Val)
		}
	}
}

func TestInitFluidsPropagatesBackward(t *testing.T) {
	sys := newTestSystem(t, "N2", "O2")
	conns := chain(t, sys,
		newStub("source", 0, 1),
		newStub("valve", 1, 1),
		newStub("sink", 1, 0),
	)
	// anchor on the last connection only
	conns[1].Fluid.Specify("N2", 1)

	if err := sys.InitFluids(); err != nil {
		t.Fatalf("init fluids: %v", err)
	}
	if conns[0].Fluid.Val["N2"] != 1 {
		t.Errorf("composition not pulled upstream: %v", conns[0].Fluid.Val)
	}
}

func TestInitFluidsThroughSplit(t *testing.T) {
	sys := newTestSystem(t, "N2", "O2")
	src := newStub("source", 0, 1)
	sp := newStub("splitter", 1, 2)
	sp.rule = RuleSplit
	a := newStub("sink a", 1, 0)
	b := newStub("sink b", 1, 0)

	c1 := NewConnection(src, "out1", sp, "in1")
	c2 := NewConnection(sp, "out1", a, "in1")
	c3 := NewConnection(sp, "out2", b, "in1")
	if err := sys.AddConns(c1, c2, c3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := sys.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
	c1.Fluid.Specify("O2", 1)

	if err := sys.InitFluids(); err != nil {
		t.Fatalf("init fluids: %v", err)
	}
	if c2.Fluid.Val["O2"] != 1 || c3.Fluid.Val["O2"] != 1 {
		t.Errorf("split branches differ: %v %v", c2.Fluid.Val, c3.Fluid.Val)
	}
}

func TestInitFluidsUndetermined(t *testing.T) {
	sys := newTestSystem(t, "N2", "O2")
	brk := newStub("burner", 1, 1)
	brk.rule = RuleBreak
	conns := chain(t, sys,
		newStub("source", 0, 1),
		brk,
		newStub("sink", 1, 0),
	)
	// the anchor cannot cross the composition break
	conns[0].Fluid.Specify("N2", 1)

	err := sys.InitFluids()
	var perr *FluidPropagationError
	if !errors.As(err, &perr) {
		t.Fatalf("expected FluidPropagationError, got %v", err)
	}
}

func TestInitPropertiesResolvesSpecs(t *testing.T) {
	sys := newTestSystem(t, "water")
	conns := chain(t, sys,
		newStub("source", 0, 1),
		newStub("valve", 1, 1),
		newStub("sink", 1, 0),
	)
	conns[0].M.Specify(2)
	conns[0].P.Specify(1e5)
	conns[0].T.Specify(300)
	conns[1].M.Ref = &Ref{Conn: conns[0], Factor: 0.5, Offset: 1}
	conns[1].M.RefSet = true

	if err := sys.InitFluids(); err != nil {
		t.Fatalf("init fluids: %v", err)
	}
	if err := sys.InitProperties(); err != nil {
		t.Fatalf("init properties: %v", err)
	}

	// T spec turns into an enthalpy starting value, h = cp*(T - Tref)
	want := 4180 * (300 - 273.15)
	if diff := conns[0].H.Val - want; diff > 1 || diff < -1 {
		t.Errorf("h from T spec: %g, want %g", conns[0].H.Val, want)
	}
	if conns[1].M.Val != 2*0.5+1 {
		t.Errorf("referenced mass flow: %g", conns[1].M.Val)
	}
	for _, c := range conns {
		if c.P.Val <= 0 {
			t.Errorf("%s: no pressure starting value", c)
		}
	}
}

func TestApplyWarmStart(t *testing.T) {
	sys := newTestSystem(t, "water")
	conns := chain(t, sys,
		newStub("source", 0, 1),
		newStub("valve", 1, 1),
		newStub("sink", 1, 0),
	)
	conns[0].P.Specify(5e5)

	if err := sys.InitFluids(); err != nil {
		t.Fatalf("init fluids: %v", err)
	}
	if err := sys.InitProperties(); err != nil {
		t.Fatalf("init properties: %v", err)
	}

	prior := map[string]SavedConn{
		conns[0].Key(): {M: 3, P: 9e5, H: 2e5, X: map[string]float64{"water": 1}},
	}
	if err := sys.ApplyWarmStart(prior, []string{"water"}); err != nil {
		t.Fatalf("warm start: %v", err)
	}
	if conns[0].M.Val != 3 || conns[0].H.Val != 2e5 {
		t.Errorf("unset values not restored: m=%g h=%g", conns[0].M.Val, conns[0].H.Val)
	}
	if conns[0].P.Val != 5e5 {
		t.Errorf("user-set pressure overwritten: %g", conns[0].P.Val)
	}
	if !sys.WarmStarted {
		t.Error("WarmStarted flag not raised")
	}

	var werr *WarmStartError
	if err := sys.ApplyWarmStart(prior, []string{"N2"}); !errors.As(err, &werr) {
		t.Fatalf("expected WarmStartError for differing fluids, got %v", err)
	}
}
