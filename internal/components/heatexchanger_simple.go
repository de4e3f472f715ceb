package components

import (
	"math"

	"github.com/san-kum/thermnet/internal/plant"
	"github.com/san-kum/thermnet/internal/solver"
)

// SimpleHeatExchanger transfers heat to or from a single stream against an
// unmodelled environment. Parameters: heat duty Q, pressure ratio pr,
// friction factor zeta, heat transfer coefficient kA with ambient
// temperature Tamb.
type SimpleHeatExchanger struct {
	Base
}

func NewSimpleHeatExchanger(label string) *SimpleHeatExchanger {
	h := &SimpleHeatExchanger{Base: newBase(label, 1, 1)}
	h.design = []string{"pr"}
	h.offdsgn = []string{"zeta", "kA"}
	return h
}

func (h *SimpleHeatExchanger) Vars() []*plant.Parameter {
	return h.varsOf("Q", "pr", "kA")
}

func (h *SimpleHeatExchanger) varPos(name string) int {
	for i, p := range h.Vars() {
		if p == h.params[name] {
			return i
		}
	}
	return -1
}

func (h *SimpleHeatExchanger) Equations(sys *plant.System) ([]plant.Equation, error) {
	cin, cout := h.In(0), h.Out(0)
	nv := len(h.Vars())
	eqs := []plant.Equation{massFlowResidual(sys, h.in, h.out, nv)}
	eqs = append(eqs, fluidResiduals(sys, 0, 1, 2, cin, cout, nv)...)

	if q := h.params["Q"]; active(q) {
		eqs = append(eqs, heatResidual(sys, 0, 1, 2, cin, cout, q, nv, h.varPos("Q")))
	}
	if pr := h.params["pr"]; active(pr) {
		eqs = append(eqs, pressureRatioResidual(sys, 0, 1, 2, cin, cout, pr, nv, h.varPos("pr")))
	}
	if zeta := h.params["zeta"]; active(zeta) {
		eq, err := zetaEquation(sys, cin, cout, zeta, nv)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	if ka := h.params["kA"]; active(ka) {
		eq, err := h.kAResidual(sys, ka)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	return eqs, nil
}

func (h *SimpleHeatExchanger) NumEquations(sys *plant.System) int {
	n := 1 + len(sys.Fluids)
	for _, name := range []string{"Q", "pr", "zeta", "kA"} {
		if active(h.params[name]) {
			n++
		}
	}
	return n
}

// kAResidual couples the stream's heat duty to the ambient via a log mean
// temperature difference: m*(h_out-h_in) + kA * lmtd(T_in, T_out, Tamb).
func (h *SimpleHeatExchanger) kAResidual(sys *plant.System, ka *plant.Parameter) (plant.Equation, error) {
	cin, cout := h.In(0), h.Out(0)
	tamb := h.Param("Tamb").Val
	lmtd := func() (float64, error) {
		tin, err := sys.Backend.TmixPH(cin.Flow())
		if err != nil {
			return 0, err
		}
		tout, err := sys.Backend.TmixPH(cout.Flow())
		if err != nil {
			return 0, err
		}
		d1 := tin - tamb
		d2 := tout - tamb
		if d1 == d2 {
			return d1, nil
		}
		// both differences must keep the same sign for the log mean
		if d1*d2 <= 0 {
			d2 = d1 / 100
		}
		return (d1 - d2) / math.Log(d1/d2), nil
	}
	res := func() (float64, error) {
		lm, err := lmtd()
		if err != nil {
			return 0, err
		}
		return cin.M.Val*(cout.H.Val-cin.H.Val) + ka.Val*lm, nil
	}

	nv := len(h.Vars())
	eq := newEq(sys, 2, nv)
	r, err := res()
	if err != nil {
		return eq, err
	}
	eq.Residual = r
	for row, c := range []*plant.Connection{cin, cout} {
		for _, col := range []int{0, 1, 2} {
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
	if pos := h.varPos("kA"); ka.IsVar && pos >= 0 {
		lm, err := lmtd()
		if err != nil {
			return eq, err
		}
		eq.VarJacobian[pos] = lm
	}
	return eq, nil
}

func (h *SimpleHeatExchanger) StartingValue(c *plant.Connection, key string, outgoing bool) float64 {
	switch key {
	case "p":
		return 1e5
	case "h":
		if q := h.params["Q"]; q != nil && q.Set && q.Val < 0 {
			if outgoing {
				return 2e5
			}
			return 3e5
		}
		if outgoing {
			return 5e5
		}
		return 3e5
	}
	return 0
}

// BusValue reports the heat duty m*(h_out - h_in).
func (h *SimpleHeatExchanger) BusValue() float64 {
	cin, cout := h.In(0), h.Out(0)
	return cin.M.Val * (cout.H.Val - cin.H.Val)
}

func (h *SimpleHeatExchanger) CalcParameters(sys *plant.System, design bool) {
	cin, cout := h.In(0), h.Out(0)

	q := h.Param("Q")
	qVal := cin.M.Val * (cout.H.Val - cin.H.Val)
	if design {
		q.DesignVal = qVal
	}
	if !q.Set {
		q.Val = qVal
	}

	pr := h.Param("pr")
	prVal := cout.P.Val / cin.P.Val
	if design {
		pr.DesignVal = prVal
	}
	if !pr.Set {
		pr.Val = prVal
	}

	zeta := h.Param("zeta")
	vin, err1 := sys.Backend.VmixPH(cin.Flow())
	vout, err2 := sys.Backend.VmixPH(cout.Flow())
	if err1 == nil && err2 == nil && cin.M.Val != 0 {
		z := (cin.P.Val - cout.P.Val) * math.Pi * math.Pi / (8 * cin.M.Val * cin.M.Val * (vin + vout) / 2)
		if design {
			zeta.DesignVal = z
		}
		if !zeta.Set {
			zeta.Val = z
		}
	}

	ka := h.Param("kA")
	tamb := h.Param("Tamb").Val
	tin, err1 := sys.Backend.TmixPH(cin.Flow())
	tout, err2 := sys.Backend.TmixPH(cout.Flow())
	if err1 == nil && err2 == nil {
		d1, d2 := tin-tamb, tout-tamb
		if d1*d2 > 0 && d1 != d2 {
			lmtd := (d1 - d2) / math.Log(d1/d2)
			if lmtd != 0 {
				kaVal := -qVal / lmtd
				if design {
					ka.DesignVal = kaVal
				}
				if !ka.Set {
					ka.Val = kaVal
				}
			}
		}
	}
}

// Pipe is a simple heat exchanger whose heat duty models losses to the
// surroundings.
type Pipe struct {
	SimpleHeatExchanger
}

func NewPipe(label string) *Pipe {
	p := &Pipe{SimpleHeatExchanger{Base: newBase(label, 1, 1)}}
	p.design = []string{"pr"}
	p.offdsgn = []string{"zeta"}
	return p
}
