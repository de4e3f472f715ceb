package components

import (
	"github.com/san-kum/thermnet/internal/plant"
)

// LHV of methane in J/kg, full conversion assumed.
const lhvCH4 = 50.015e6

// mass-based stoichiometric coefficients of methane combustion per kg of
// fuel burnt: CH4 + 2 O2 -> CO2 + 2 H2O
var stoich = map[string]float64{
	"CH4": -1,
	"O2":  -2 * 31.9988 / 16.043,
	"CO2": 44.0095 / 16.043,
	"H2O": 2 * 18.0153 / 16.043,
}

// CombustionChamber burns the methane carried by its two inlet streams
// (air at in1, fuel at in2) completely and releases the lower heating
// value into the flue gas. Parameters: air ratio lambda and thermal input
// ti.
type CombustionChamber struct {
	Base
}

func NewCombustionChamber(label string) *CombustionChamber {
	return &CombustionChamber{Base: newBase(label, 2, 1)}
}

func (cc *CombustionChamber) FluidRule() plant.FluidRule {
	return plant.RuleBreak
}

// PreInit verifies the reaction participants are part of the network.
func (cc *CombustionChamber) PreInit(sys *plant.System) error {
	for _, f := range []string{"CH4", "O2", "CO2", "H2O"} {
		if sys.FluidIndex(f) < 0 {
			return &plant.TopologyError{
				Component: cc.label,
				Msg:       "combustion requires fluid " + f + " in the network",
			}
		}
	}
	return nil
}

// SeedFluids writes a flue gas guess onto the outlet, since no composition
// propagates through a combustion chamber.
func (cc *CombustionChamber) SeedFluids(sys *plant.System) error {
	out := cc.Out(0)
	if out.Fluid.AnySet() {
		return nil
	}
	guess := map[string]float64{"N2": 0.74, "O2": 0.05, "CO2": 0.07, "H2O": 0.11, "Ar": 0.03}
	for _, f := range sys.Fluids {
		if g, ok := guess[f]; ok {
			out.Fluid.Val[f] = g
		} else {
			out.Fluid.Val[f] = 0
		}
	}
	return nil
}

// fuelBurnt is the methane mass flow entering the chamber.
func (cc *CombustionChamber) fuelBurnt() float64 {
	var mf float64
	for _, c := range cc.in {
		mf += c.M.Val * c.Fluid.Val["CH4"]
	}
	return mf
}

func (cc *CombustionChamber) Vars() []*plant.Parameter {
	return cc.varsOf("lamb", "ti")
}

func (cc *CombustionChamber) varPos(name string) int {
	for i, p := range cc.Vars() {
		if p == cc.params[name] {
			return i
		}
	}
	return -1
}

func (cc *CombustionChamber) NumEquations(sys *plant.System) int {
	n := 2 + len(sys.Fluids) + len(cc.in)
	if active(cc.params["lamb"]) {
		n++
	}
	if active(cc.params["ti"]) {
		n++
	}
	return n
}

func (cc *CombustionChamber) Equations(sys *plant.System) ([]plant.Equation, error) {
	out := cc.Out(0)
	nv := len(cc.Vars())
	outRow := len(cc.in)
	nc := len(cc.in) + 1
	mf := cc.fuelBurnt()

	eqs := []plant.Equation{massFlowResidual(sys, cc.in, cc.out, nv)}

	// reaction balance per fluid: what flows in, shifted by the
	// stoichiometry of the burnt fuel, flows out
	ch4 := sys.FluidIndex("CH4") - 3
	for fi, f := range sys.Fluids {
		gamma := stoich[f]
		eq := newEq(sys, nc, nv)
		for i, c := range cc.in {
			eq.Residual += c.M.Val * c.Fluid.Val[f]
			eq.Jacobian[i][0] = c.Fluid.Val[f] + gamma*c.Fluid.Val["CH4"]
			eq.Jacobian[i][3+fi] = c.M.Val
			if gamma != 0 {
				eq.Jacobian[i][3+ch4] += gamma * c.M.Val
			}
		}
		eq.Residual += gamma * mf
		eq.Residual -= out.M.Val * out.Fluid.Val[f]
		eq.Jacobian[outRow][0] = -out.Fluid.Val[f]
		eq.Jacobian[outRow][3+fi] += -out.M.Val
		eqs = append(eqs, eq)
	}

	// energy balance including the heat of reaction
	en := newEq(sys, nc, nv)
	for i, c := range cc.in {
		en.Residual += c.M.Val * c.H.Val
		en.Jacobian[i][0] = c.H.Val + lhvCH4*c.Fluid.Val["CH4"]
		en.Jacobian[i][2] = c.M.Val
		en.Jacobian[i][3+ch4] = lhvCH4 * c.M.Val
	}
	en.Residual += lhvCH4 * mf
	en.Residual -= out.M.Val * out.H.Val
	en.Jacobian[outRow][0] = -out.H.Val
	en.Jacobian[outRow][2] = -out.M.Val
	eqs = append(eqs, en)

	// inlet pressures equal the flue gas pressure
	for i, c := range cc.in {
		eqs = append(eqs, equalityResidual(sys, i, outRow, nc, 1, c, out, nv))
	}

	if lamb := cc.params["lamb"]; active(lamb) {
		eqs = append(eqs, cc.lambdaResidual(sys, lamb))
	}
	if ti := cc.params["ti"]; active(ti) {
		eq := newEq(sys, nc, nv)
		eq.Residual = ti.Val - lhvCH4*mf
		for i, c := range cc.in {
			eq.Jacobian[i][0] = -lhvCH4 * c.Fluid.Val["CH4"]
			eq.Jacobian[i][3+ch4] = -lhvCH4 * c.M.Val
		}
		if pos := cc.varPos("ti"); ti.IsVar && pos >= 0 {
			eq.VarJacobian[pos] = 1
		}
		eqs = append(eqs, eq)
	}
	return eqs, nil
}

// lambdaResidual relates available oxygen to the stoichiometric demand:
// lamb * 2 * n_CH4 - n_O2 = 0 on a molar basis.
func (cc *CombustionChamber) lambdaResidual(sys *plant.System, lamb *plant.Parameter) plant.Equation {
	const (
		molCH4 = 16.043e-3
		molO2  = 31.9988e-3
	)
	nc := len(cc.in) + 1
	ch4 := sys.FluidIndex("CH4") - 3
	o2 := sys.FluidIndex("O2") - 3

	eq := newEq(sys, nc, len(cc.Vars()))
	var nFuel, nOxy float64
	for i, c := range cc.in {
		nFuel += c.M.Val * c.Fluid.Val["CH4"] / molCH4
		nOxy += c.M.Val * c.Fluid.Val["O2"] / molO2
		eq.Jacobian[i][0] = lamb.Val*2*c.Fluid.Val["CH4"]/molCH4 - c.Fluid.Val["O2"]/molO2
		eq.Jacobian[i][3+ch4] = lamb.Val * 2 * c.M.Val / molCH4
		eq.Jacobian[i][3+o2] = -c.M.Val / molO2
	}
	eq.Residual = lamb.Val*2*nFuel - nOxy
	if pos := cc.varPos("lamb"); lamb.IsVar && pos >= 0 {
		eq.VarJacobian[pos] = 2 * nFuel
	}
	return eq
}

func (cc *CombustionChamber) StartingValue(c *plant.Connection, key string, outgoing bool) float64 {
	switch key {
	case "p":
		return 1e5
	case "h":
		if outgoing {
			return 1.5e6
		}
		return 3e5
	}
	return 0
}

// ConvergenceCheck keeps the flue gas state physically plausible while the
// solution is still far off.
func (cc *CombustionChamber) ConvergenceCheck(sys *plant.System) {
	out := cc.Out(0)
	if !out.M.Set && out.M.Val < 0 {
		out.M.Val = 0.01
	}
	if !out.H.Set && out.H.Val < 5e5 {
		out.H.Val = 1e6
	}
	// no unburnt fuel leaves the chamber
	if x := out.Fluid.Val["CH4"]; x > 0 && !out.Fluid.Set["CH4"] {
		out.Fluid.Val["CH4"] = 0
	}
}

func (cc *CombustionChamber) CalcParameters(sys *plant.System, design bool) {
	mf := cc.fuelBurnt()
	ti := cc.Param("ti")
	if design {
		ti.DesignVal = lhvCH4 * mf
	}
	if !ti.Set {
		ti.Val = lhvCH4 * mf
	}

	const (
		molCH4 = 16.043e-3
		molO2  = 31.9988e-3
	)
	var nFuel, nOxy float64
	for _, c := range cc.in {
		nFuel += c.M.Val * c.Fluid.Val["CH4"] / molCH4
		nOxy += c.M.Val * c.Fluid.Val["O2"] / molO2
	}
	lamb := cc.Param("lamb")
	if nFuel > 0 {
		l := nOxy / (2 * nFuel)
		if design {
			lamb.DesignVal = l
		}
		if !lamb.Set {
			lamb.Val = l
		}
	}
}
