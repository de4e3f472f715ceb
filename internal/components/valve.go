package components

import (
	"math"

	"github.com/san-kum/thermnet/internal/plant"
)

// Valve throttles a stream at constant enthalpy. Optional parameters:
// pressure ratio pr and dimensionless friction factor zeta.
type Valve struct {
	Base
}

func NewValve(label string) *Valve {
	v := &Valve{Base: newBase(label, 1, 1)}
	v.design = []string{"pr"}
	v.offdsgn = []string{"zeta"}
	return v
}

func (v *Valve) Equations(sys *plant.System) ([]plant.Equation, error) {
	cin, cout := v.In(0), v.Out(0)
	eqs := []plant.Equation{massFlowResidual(sys, v.in, v.out, 0)}
	eqs = append(eqs, fluidResiduals(sys, 0, 1, 2, cin, cout, 0)...)

	// isenthalpic throttling
	eqs = append(eqs, equalityResidual(sys, 0, 1, 2, 2, cin, cout, 0))

	if pr := v.params["pr"]; active(pr) {
		eqs = append(eqs, pressureRatioResidual(sys, 0, 1, 2, cin, cout, pr, 0, -1))
	}
	if zeta := v.params["zeta"]; active(zeta) {
		eq, err := zetaEquation(sys, cin, cout, zeta, 0)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	return eqs, nil
}

func (v *Valve) NumEquations(sys *plant.System) int {
	n := 2 + len(sys.Fluids)
	if active(v.params["pr"]) {
		n++
	}
	if active(v.params["zeta"]) {
		n++
	}
	return n
}

func (v *Valve) StartingValue(c *plant.Connection, key string, outgoing bool) float64 {
	switch key {
	case "p":
		if outgoing {
			return 4e5
		}
		return 5e5
	case "h":
		return 5e5
	}
	return 0
}

func (v *Valve) CalcParameters(sys *plant.System, design bool) {
	cin, cout := v.In(0), v.Out(0)
	pr := v.Param("pr")
	prVal := cout.P.Val / cin.P.Val
	if design {
		pr.DesignVal = prVal
	}
	if !pr.Set {
		pr.Val = prVal
	}
	zeta := v.Param("zeta")
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
}
