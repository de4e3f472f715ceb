package fluid

import (
	"errors"
	"math"
	"testing"
)

func newTestBackend(t *testing.T, fluids ...string) *Backend {
	t.Helper()
	b, err := NewBackend(fluids)
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	return b
}

func TestPureRoundTrip(t *testing.T) {
	b := newTestBackend(t, "water", "N2")

	cases := []struct {
		fluid string
		p, T  float64
	}{
		{"water", 1e5, 300},
		{"water", 20e5, 400},
		{"N2", 1e5, 288.15},
		{"N2", 50e5, 800},
	}
	for _, c := range cases {
		h, err := b.HPureTP(c.fluid, c.p, c.T)
		if err != nil {
			t.Fatalf("%s h(p,T): %v", c.fluid, err)
		}
		back, err := b.TPureHP(c.fluid, c.p, h)
		if err != nil {
			t.Fatalf("%s T(p,h): %v", c.fluid, err)
		}
		if math.Abs(back-c.T) > 1e-6 {
			t.Errorf("%s: round trip %g K -> %g K", c.fluid, c.T, back)
		}
	}
}

func TestPureOutOfDomain(t *testing.T) {
	b := newTestBackend(t, "water")

	_, err := b.TPureHP("water", 1e5, 1e9)
	var perr *PropertyError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PropertyError, got %v", err)
	}
	if perr.Fluid != "water" {
		t.Errorf("error names fluid %q", perr.Fluid)
	}
}

func TestSaturation(t *testing.T) {
	b := newTestBackend(t, "water")

	ts, err := b.Tsat("water", 1e5)
	if err != nil {
		t.Fatalf("Tsat: %v", err)
	}
	// reference pressure pins the curve
	if math.Abs(ts-372.76) > 1e-9 {
		t.Errorf("Tsat(1 bar) = %g", ts)
	}

	ts10, err := b.Tsat("water", 10e5)
	if err != nil {
		t.Fatalf("Tsat: %v", err)
	}
	if ts10 <= ts {
		t.Errorf("saturation temperature must rise with pressure: %g <= %g", ts10, ts)
	}

	hliq, err := b.HPureQ("water", 1e5, 0)
	if err != nil {
		t.Fatalf("HPureQ: %v", err)
	}
	hvap, err := b.HPureQ("water", 1e5, 1)
	if err != nil {
		t.Fatalf("HPureQ: %v", err)
	}
	if math.Abs((hvap-hliq)-2.257e6) > 1 {
		t.Errorf("evaporation enthalpy = %g", hvap-hliq)
	}

	if _, err := b.Tsat("N2", 1e5); err == nil {
		t.Error("expected error for fluid without saturation curve")
	}
}

func TestMixtureTemperature(t *testing.T) {
	b := newTestBackend(t, "N2", "O2")

	x := map[string]float64{"N2": 0.767, "O2": 0.233}
	h, err := b.HmixPT(Flow{P: 1e5, X: x}, 400)
	if err != nil {
		t.Fatalf("HmixPT: %v", err)
	}
	back, err := b.TmixPH(Flow{P: 1e5, H: h, X: x})
	if err != nil {
		t.Fatalf("TmixPH: %v", err)
	}
	if math.Abs(back-400) > 1e-6 {
		t.Errorf("mixture round trip: %g K", back)
	}
}

func TestPureDispatch(t *testing.T) {
	b := newTestBackend(t, "water", "N2")

	// a composition of ~1 water must use the pure lookup
	x := map[string]float64{"water": 1 - 1e-5, "N2": 1e-5}
	if f := SingleFluid(x); f != "water" {
		t.Fatalf("SingleFluid = %q", f)
	}
	tPure, err := b.TPureHP("water", 1e5, 1e5)
	if err != nil {
		t.Fatalf("TPureHP: %v", err)
	}
	tMix, err := b.TmixPH(Flow{P: 1e5, H: 1e5, X: x})
	if err != nil {
		t.Fatalf("TmixPH: %v", err)
	}
	if tPure != tMix {
		t.Errorf("pure dispatch: %g != %g", tMix, tPure)
	}
}

func TestIsentropicLiquid(t *testing.T) {
	b := newTestBackend(t, "water")

	fl := Flow{P: 1e5, H: 1e5, X: map[string]float64{"water": 1}}
	hs, err := b.HIsentropic(fl, 10e5)
	if err != nil {
		t.Fatalf("HIsentropic: %v", err)
	}
	want := 1e5 + 9e5/997.0
	if math.Abs(hs-want) > 1e-6 {
		t.Errorf("isentropic pumping: %g, want %g", hs, want)
	}
}

func TestIsentropicGasDirection(t *testing.T) {
	b := newTestBackend(t, "N2")

	fl := Flow{P: 1e5, H: 3e5, X: map[string]float64{"N2": 1}}
	hs, err := b.HIsentropic(fl, 10e5)
	if err != nil {
		t.Fatalf("HIsentropic: %v", err)
	}
	if hs <= fl.H {
		t.Errorf("isentropic compression must raise enthalpy: %g <= %g", hs, fl.H)
	}

	hs, err = b.HIsentropic(Flow{P: 10e5, H: 3e5, X: map[string]float64{"N2": 1}}, 1e5)
	if err != nil {
		t.Fatalf("HIsentropic: %v", err)
	}
	if hs >= 3e5 {
		t.Errorf("isentropic expansion must lower enthalpy: %g", hs)
	}
}

func TestVolumetric(t *testing.T) {
	b := newTestBackend(t, "N2")

	x := map[string]float64{"N2": 1}
	h, err := b.HPureTP("N2", 1e5, 300)
	if err != nil {
		t.Fatalf("HPureTP: %v", err)
	}
	v, err := b.VmixPH(Flow{P: 1e5, H: h, X: x})
	if err != nil {
		t.Fatalf("VmixPH: %v", err)
	}
	want := 296.8 * 300 / 1e5
	if math.Abs(v-want) > 1e-9 {
		t.Errorf("ideal gas volume: %g, want %g", v, want)
	}
}

func TestDerivativesMatchDifference(t *testing.T) {
	b := newTestBackend(t, "N2", "O2")

	fl := Flow{P: 5e5, H: 4e5, X: map[string]float64{"N2": 0.7, "O2": 0.3}}
	d, err := b.DTdhMixPH(fl)
	if err != nil {
		t.Fatalf("DTdhMixPH: %v", err)
	}
	// dT/dh of an ideal mixture is 1/cp_mix
	cp := 0.7*1040 + 0.3*918
	if math.Abs(d-1/cp) > 1e-9 {
		t.Errorf("dT/dh = %g, want %g", d, 1/cp)
	}
}

func TestBackendRejectsUnknownFluid(t *testing.T) {
	if _, err := NewBackend([]string{"water", "unobtainium"}); err == nil {
		t.Fatal("expected error for unknown fluid")
	}
	if _, err := NewBackend(nil); err == nil {
		t.Fatal("expected error for empty fluid list")
	}
}
