package components

import "github.com/san-kum/thermnet/internal/plant"

// Compressor raises the pressure of a gas stream. Parameters: shaft power
// P, isentropic efficiency eta_s, pressure ratio pr and the eta_s
// characteristic used in offdesign mode.
type Compressor struct {
	turbomachine
}

func NewCompressor(label string) *Compressor {
	c := &Compressor{turbomachine{Base: newBase(label, 1, 1)}}
	c.design = []string{"eta_s"}
	c.offdsgn = []string{"eta_s_char"}
	c.Param("eta_s_char").Char = &plant.CharLine{
		Label: "eta_s_char",
		X:     []float64{0.0, 0.5, 1.0, 1.5, 2.0},
		Y:     []float64{0.4, 0.9, 1.0, 0.95, 0.8},
	}
	return c
}

func (c *Compressor) Equations(sys *plant.System) ([]plant.Equation, error) {
	eqs := c.commonEquations(sys)

	if par := c.params["P"]; active(par) {
		eqs = append(eqs, c.powerResidual(sys))
	}
	if par := c.params["eta_s"]; active(par) {
		eq, err := c.etaResidual(sys, false, false)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	if par := c.params["eta_s_char"]; par.Set {
		eq, err := c.etaResidual(sys, false, true)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	if par := c.params["pr"]; active(par) {
		eqs = append(eqs, pressureRatioResidual(sys, 0, 1, 2, c.In(0), c.Out(0), par, len(c.Vars()), c.varPos("pr")))
	}
	return eqs, nil
}

func (c *Compressor) StartingValue(conn *plant.Connection, key string, outgoing bool) float64 {
	switch key {
	case "p":
		if outgoing {
			return 10e5
		}
		return 1e5
	case "h":
		if outgoing {
			return 6e5
		}
		return 4e5
	}
	return 0
}

// ConvergenceCheck keeps the compression oriented the right way around
// while the solution is still far off.
func (c *Compressor) ConvergenceCheck(sys *plant.System) {
	cin, cout := c.In(0), c.Out(0)
	if !cout.P.Set && cout.P.Val <= cin.P.Val {
		cout.P.Val = cin.P.Val * 2
	}
	if !cout.H.Set && cout.H.Val <= cin.H.Val {
		cout.H.Val = cin.H.Val * 1.1
	}
}
