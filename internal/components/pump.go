package components

import "github.com/san-kum/thermnet/internal/plant"

// Pump raises the pressure of a liquid stream. Parameters: shaft power P,
// isentropic efficiency eta_s, pressure ratio pr and the eta_s
// characteristic used in offdesign mode.
type Pump struct {
	turbomachine
}

func NewPump(label string) *Pump {
	p := &Pump{turbomachine{Base: newBase(label, 1, 1)}}
	p.design = []string{"eta_s"}
	p.offdsgn = []string{"eta_s_char"}
	p.Param("eta_s_char").Char = &plant.CharLine{
		Label: "eta_s_char",
		X:     []float64{0.0, 0.5, 1.0, 1.5, 2.0},
		Y:     []float64{0.3, 0.86, 1.0, 0.93, 0.7},
	}
	return p
}

func (p *Pump) Equations(sys *plant.System) ([]plant.Equation, error) {
	eqs := p.commonEquations(sys)

	if par := p.params["P"]; active(par) {
		eqs = append(eqs, p.powerResidual(sys))
	}
	if par := p.params["eta_s"]; active(par) {
		eq, err := p.etaResidual(sys, false, false)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	if par := p.params["eta_s_char"]; par.Set {
		eq, err := p.etaResidual(sys, false, true)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	if par := p.params["pr"]; active(par) {
		eqs = append(eqs, pressureRatioResidual(sys, 0, 1, 2, p.In(0), p.Out(0), par, len(p.Vars()), p.varPos("pr")))
	}
	return eqs, nil
}

func (p *Pump) StartingValue(c *plant.Connection, key string, outgoing bool) float64 {
	switch key {
	case "p":
		if outgoing {
			return 10e5
		}
		return 1e5
	case "h":
		if outgoing {
			return 3e5
		}
		return 2.9e5
	}
	return 0
}
