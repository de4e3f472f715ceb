package components

import (
	"github.com/san-kum/thermnet/internal/plant"
	"github.com/san-kum/thermnet/internal/solver"
)

// turbomachine holds what pumps, compressors and turbines share: the power
// equation, the isentropic efficiency equation (optionally scaled by an
// efficiency characteristic against relative mass flow) and the design mass
// flow remembered for offdesign solves.
type turbomachine struct {
	Base
	mDesign float64
}

func (t *turbomachine) Vars() []*plant.Parameter {
	return t.varsOf("P", "eta_s", "pr")
}

func (t *turbomachine) varPos(name string) int {
	for i, p := range t.Vars() {
		if p == t.params[name] {
			return i
		}
	}
	return -1
}

// powerResidual is P - m*(h_out - h_in).
func (t *turbomachine) powerResidual(sys *plant.System) plant.Equation {
	cin, cout := t.In(0), t.Out(0)
	p := t.params["P"]
	nv := len(t.Vars())
	eq := newEq(sys, 2, nv)
	eq.Residual = p.Val - cin.M.Val*(cout.H.Val-cin.H.Val)
	eq.Jacobian[0][0] = -(cout.H.Val - cin.H.Val)
	eq.Jacobian[0][2] = cin.M.Val
	eq.Jacobian[1][2] = -cin.M.Val
	if pos := t.varPos("P"); p.IsVar && pos >= 0 {
		eq.VarJacobian[pos] = 1
	}
	return eq
}

// etaResidual builds the isentropic efficiency equation. For pumps and
// compressors eta = (h_s - h_in)/(h_out - h_in), for turbines
// eta = (h_out - h_in)/(h_s - h_in); driving selects the form. When char is
// true the design efficiency is scaled by the eta_s characteristic at
// m/m_design.
func (t *turbomachine) etaResidual(sys *plant.System, driving bool, useChar bool) (plant.Equation, error) {
	cin, cout := t.In(0), t.Out(0)
	etaPar := t.Param("eta_s")
	charPar := t.Param("eta_s_char")

	eta := func() float64 {
		if !useChar {
			return etaPar.Val
		}
		x := 1.0
		if t.mDesign != 0 {
			x = cin.M.Val / t.mDesign
		}
		scale := 1.0
		if charPar.Char != nil {
			scale = charPar.Char.Evaluate(x)
		}
		return etaPar.DesignVal * scale
	}
	res := func() (float64, error) {
		hs, err := sys.Backend.HIsentropic(cin.Flow(), cout.P.Val)
		if err != nil {
			return 0, err
		}
		if driving {
			// expansion: actual enthalpy drop vs isentropic drop
			return (cout.H.Val - cin.H.Val) - eta()*(hs-cin.H.Val), nil
		}
		return (hs - cin.H.Val) - eta()*(cout.H.Val-cin.H.Val), nil
	}

	nv := len(t.Vars())
	eq := newEq(sys, 2, nv)
	r, err := res()
	if err != nil {
		return eq, err
	}
	eq.Residual = r
	cols := []int{1, 2}
	if useChar {
		cols = []int{0, 1, 2}
	}
	for row, c := range []*plant.Connection{cin, cout} {
		for _, col := range cols {
			if row == 1 && col == 0 {
				continue
			}
			d, err := solver.NumericDeriv(sys, res, c, col)
			if err != nil {
				return eq, err
			}
			eq.Jacobian[row][col] = d
		}
	}
	if pos := t.varPos("eta_s"); etaPar.IsVar && pos >= 0 && !useChar {
		hs, err := sys.Backend.HIsentropic(cin.Flow(), cout.P.Val)
		if err != nil {
			return eq, err
		}
		if driving {
			eq.VarJacobian[pos] = -(hs - cin.H.Val)
		} else {
			eq.VarJacobian[pos] = -(cout.H.Val - cin.H.Val)
		}
	}
	return eq, nil
}

// BusValue reports shaft power m*(h_out - h_in).
func (t *turbomachine) BusValue() float64 {
	cin, cout := t.In(0), t.Out(0)
	return cin.M.Val * (cout.H.Val - cin.H.Val)
}

func (t *turbomachine) CalcParameters(sys *plant.System, design bool) {
	cin, cout := t.In(0), t.Out(0)
	dh := cout.H.Val - cin.H.Val

	pPar := t.Param("P")
	if design {
		pPar.DesignVal = cin.M.Val * dh
		t.mDesign = cin.M.Val
	}
	if !pPar.Set {
		pPar.Val = cin.M.Val * dh
	}

	prPar := t.Param("pr")
	if design {
		prPar.DesignVal = cout.P.Val / cin.P.Val
	}
	if !prPar.Set {
		prPar.Val = cout.P.Val / cin.P.Val
	}

	etaPar := t.Param("eta_s")
	hs, err := sys.Backend.HIsentropic(cin.Flow(), cout.P.Val)
	if err == nil && dh != 0 {
		var eta float64
		if dh < 0 {
			eta = dh / (hs - cin.H.Val) // expansion
		} else {
			eta = (hs - cin.H.Val) / dh
		}
		if design {
			etaPar.DesignVal = eta
		}
		if !etaPar.Set {
			etaPar.Val = eta
		}
	}
}

func (t *turbomachine) NumEquations(sys *plant.System) int {
	n := 1 + len(sys.Fluids)
	if active(t.params["P"]) {
		n++
	}
	if active(t.params["eta_s"]) {
		n++
	}
	if p := t.params["eta_s_char"]; p != nil && p.Set {
		n++
	}
	if active(t.params["pr"]) {
		n++
	}
	return n
}

func (t *turbomachine) commonEquations(sys *plant.System) []plant.Equation {
	nv := len(t.Vars())
	eqs := []plant.Equation{massFlowResidual(sys, t.in, t.out, nv)}
	return append(eqs, fluidResiduals(sys, 0, 1, 2, t.In(0), t.Out(0), nv)...)
}
