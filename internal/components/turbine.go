package components

import "github.com/san-kum/thermnet/internal/plant"

// Turbine expands a stream and extracts shaft power. Parameters: power P,
// isentropic efficiency eta_s, pressure ratio pr and the eta_s
// characteristic used in offdesign mode.
type Turbine struct {
	turbomachine
}

func NewTurbine(label string) *Turbine {
	t := &Turbine{turbomachine{Base: newBase(label, 1, 1)}}
	t.design = []string{"eta_s"}
	t.offdsgn = []string{"eta_s_char"}
	t.Param("eta_s_char").Char = &plant.CharLine{
		Label: "eta_s_char",
		X:     []float64{0.0, 0.5, 1.0, 1.5, 2.0},
		Y:     []float64{0.5, 0.94, 1.0, 0.98, 0.9},
	}
	return t
}

func (t *Turbine) Equations(sys *plant.System) ([]plant.Equation, error) {
	eqs := t.commonEquations(sys)

	if par := t.params["P"]; active(par) {
		eqs = append(eqs, t.powerResidual(sys))
	}
	if par := t.params["eta_s"]; active(par) {
		eq, err := t.etaResidual(sys, true, false)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	if par := t.params["eta_s_char"]; par.Set {
		eq, err := t.etaResidual(sys, true, true)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	if par := t.params["pr"]; active(par) {
		eqs = append(eqs, pressureRatioResidual(sys, 0, 1, 2, t.In(0), t.Out(0), par, len(t.Vars()), t.varPos("pr")))
	}
	return eqs, nil
}

func (t *Turbine) StartingValue(c *plant.Connection, key string, outgoing bool) float64 {
	switch key {
	case "p":
		if outgoing {
			return 0.5e5
		}
		return 25e5
	case "h":
		if outgoing {
			return 1.5e6
		}
		return 2.5e6
	}
	return 0
}

// ConvergenceCheck keeps the expansion oriented the right way around while
// the solution is still far off.
func (t *Turbine) ConvergenceCheck(sys *plant.System) {
	cin, cout := t.In(0), t.Out(0)
	if !cout.P.Set && cout.P.Val >= cin.P.Val {
		cout.P.Val = cin.P.Val / 2
	}
	if !cout.H.Set && cout.H.Val >= cin.H.Val {
		cout.H.Val = cin.H.Val * 0.9
	}
}
