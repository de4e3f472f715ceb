package plant

import (
	"math"
	"testing"
)

func TestSwitchToOffdesign(t *testing.T) {
	sys := newTestSystem(t, "water")
	pump := newStub("pump", 1, 1)
	pump.design = []string{"eta_s"}
	pump.offdesign = []string{"eta_s_char"}
	eta := NewParameter()
	eta.Specify(0.9)
	char := NewParameter()
	char.DesignVal = 0.85
	pump.params["eta_s"] = eta
	pump.params["eta_s_char"] = char

	conns := chain(t, sys, newStub("source", 0, 1), pump, newStub("sink", 1, 0))
	conns[0].T.Specify(300)
	conns[0].Design = []string{"T"}
	conns[0].Offdesign = []string{"m"}
	conns[0].M.Val = 2.5

	sys.SwitchToOffdesign()

	if sys.Mode != Offdesign {
		t.Fatalf("mode = %v", sys.Mode)
	}
	if eta.Set {
		t.Error("design parameter still set")
	}
	if !char.Set || char.Val != 0.85 {
		t.Errorf("offdesign parameter: set=%v val=%g", char.Set, char.Val)
	}
	if conns[0].T.Set {
		t.Error("design connection spec still set")
	}
	if !conns[0].M.Set || conns[0].M.Val != 2.5 {
		t.Errorf("offdesign spec must pin the design result: set=%v val=%g",
			conns[0].M.Set, conns[0].M.Val)
	}
}

// A network loaded from a config file carries no solved state, so pinning
// an offdesign quantity must use the design-case value recorded while
// priming, not whatever the fresh connection happens to hold.
func TestSwitchToOffdesignPinsPrimedDesignValue(t *testing.T) {
	sys := newTestSystem(t, "water")
	conns := chain(t, sys,
		newStub("source", 0, 1),
		newStub("valve", 1, 1),
		newStub("sink", 1, 0),
	)
	conns[0].P.Specify(2e5)
	conns[0].Design = []string{"p"}
	conns[0].Offdesign = []string{"m"}

	prior := map[string]SavedConn{
		conns[0].Key(): {M: 1.25, P: 2e5, H: 1e5, X: map[string]float64{"water": 1}},
		conns[1].Key(): {M: 1.25, P: 1.9e5, H: 1e5, X: map[string]float64{"water": 1}},
	}
	if err := sys.PrimeFromDesign(prior, []string{"water"}); err != nil {
		t.Fatalf("prime: %v", err)
	}
	// priming restores the pre-design state, here a fresh network
	if !math.IsNaN(conns[0].M.Val) {
		t.Errorf("current mass flow overwritten by priming: %g", conns[0].M.Val)
	}

	sys.SwitchToOffdesign()

	if conns[0].P.Set {
		t.Error("design pressure spec still set")
	}
	if !conns[0].M.Set || conns[0].M.Val != 1.25 {
		t.Errorf("mass flow pinned at %g (set=%v), want the design value 1.25",
			conns[0].M.Val, conns[0].M.Set)
	}
}

func TestSwitchToOffdesignManualOptOut(t *testing.T) {
	sys := newTestSystem(t, "water")
	pump := newStub("pump", 1, 1)
	pump.manual = true
	pump.design = []string{"eta_s"}
	eta := NewParameter()
	eta.Specify(0.9)
	pump.params["eta_s"] = eta

	chain(t, sys, newStub("source", 0, 1), pump, newStub("sink", 1, 0))
	sys.SwitchToOffdesign()

	if !eta.Set || eta.Val != 0.9 {
		t.Errorf("manual component must keep its parameters: set=%v val=%g", eta.Set, eta.Val)
	}
}

func TestSwitchToOffdesignKeepsFreeVariables(t *testing.T) {
	sys := newTestSystem(t, "water")
	he := newStub("exchanger", 1, 1)
	he.offdesign = []string{"kA"}
	kA := NewParameter()
	kA.IsVar = true
	kA.Val = 1234
	kA.DesignVal = 999
	he.params["kA"] = kA

	chain(t, sys, newStub("source", 0, 1), he, newStub("sink", 1, 0))
	sys.SwitchToOffdesign()

	if !kA.Set {
		t.Error("offdesign variable not activated")
	}
	if kA.Val != 1234 {
		t.Errorf("free variable value clobbered: %g", kA.Val)
	}
}
